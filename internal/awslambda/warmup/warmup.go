//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

// Package warmup renders srcset variants of media files uploaded to the inbox.
package warmup

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	_ "github.com/fogfish/logger/v3"
	"github.com/fogfish/logger/x/xlog"
	"github.com/fogfish/mediatype"
	"github.com/fogfish/mediatype/internal/codec"
	"github.com/fogfish/mediatype/internal/config"
	"github.com/fogfish/stream"
	"github.com/fogfish/swarm"
	"github.com/fogfish/swarm/broker/eventbridge"
	"github.com/fogfish/swarm/broker/events3"
	"github.com/fogfish/swarm/emit"
)

// VariantsRendered is emitted once all variants of the file are rendered
type VariantsRendered struct {
	File     string    `json:"file"`
	Variants []string  `json:"variants"`
	Created  time.Time `json:"created"`
}

// attributes of rendered variant at S3
type attributes struct {
	ContentType  string `metadata:"Content-Type"`
	CacheControl string `metadata:"Cache-Control"`
}

func Runner() {
	q := events3.Must(events3.Listener().Build())

	inbox, err := stream.NewFS(os.Getenv("CONFIG_STORE_INBOX"))
	if err != nil {
		xlog.Emergency("Failed to init inbox s3 client", err)
	}

	media, err := stream.New[attributes](os.Getenv("CONFIG_STORE_MEDIA"))
	if err != nil {
		xlog.Emergency("Failed to init media s3 client", err)
	}

	types, err := config.ParseTypes(os.Getenv("CONFIG_MEDIA_TYPES"))
	if err != nil || len(types) == 0 {
		xlog.Emergency("Failed to init media types", err,
			"types", os.Getenv("CONFIG_MEDIA_TYPES"),
		)
	}

	putter := codec.PutterFunc(func(ctx context.Context, key, contentType string, r io.Reader) error {
		fd, err := media.Create("/"+key, &attributes{
			ContentType:  contentType,
			CacheControl: "public, max-age=31536000",
		})
		if err != nil {
			return err
		}

		if _, err := io.Copy(fd, r); err != nil {
			fd.Close()
			return err
		}

		return fd.Close()
	})

	w := New(
		codec.NewCodec(codec.NewStaticTypes(types...), absFS{inbox}, putter),
		names(types),
	)

	if eventbus := os.Getenv("CONFIG_SINK_EVENTBUS"); eventbus != "" {
		bridge := eventbridge.Must(eventbridge.Emitter().Build(eventbus))
		emitter := emit.NewTyped[VariantsRendered](bridge)
		w.notify = func(ctx context.Context, evt VariantsRendered) error {
			return emitter.Enq(ctx, evt)
		}
	}

	bus := bus{warmup: w}
	go bus.onEventS3(events3.Listen(q))

	q.Await()
}

func names(types []mediatype.Type) []string {
	seq := make([]string, len(types))
	for i, t := range types {
		seq[i] = t.Name
	}
	return seq
}

// absFS addresses S3 keys as absolute paths
type absFS struct{ fs.FS }

func (fsys absFS) Open(name string) (fs.File, error) {
	return fsys.FS.Open("/" + strings.TrimPrefix(name, "/"))
}

//------------------------------------------------------------------------------

// Renderer of all variants of the file
type Renderer interface {
	Warm(ctx context.Context, file string, types ...string) ([]mediatype.Media, error)
}

// Warmup renders every srcset variant of configured media types
type Warmup struct {
	renderer Renderer
	types    []string
	notify   func(context.Context, VariantsRendered) error
}

func New(renderer Renderer, types []string) *Warmup {
	return &Warmup{renderer: renderer, types: types}
}

// Process the S3 object key, non-raster files are skipped
func (w *Warmup) Process(ctx context.Context, key string) (*VariantsRendered, error) {
	file, err := url.QueryUnescape(key)
	if err != nil {
		return nil, err
	}
	file = strings.TrimPrefix(file, "/")

	if _, supported := codec.FormatOf(file); !supported {
		slog.Debug("skipping media file", slog.String("file", file))
		return nil, nil
	}

	seq, err := w.renderer.Warm(ctx, file, w.types...)
	if err != nil {
		return nil, err
	}

	evt := VariantsRendered{
		File:     file,
		Variants: make([]string, len(seq)),
		Created:  time.Now().UTC(),
	}
	for i, media := range seq {
		evt.Variants[i] = media.PathKey()
	}

	slog.Debug("variants rendered",
		slog.String("file", file),
		slog.Int("variants", len(seq)),
	)

	if w.notify != nil {
		if err := w.notify(ctx, evt); err != nil {
			return nil, err
		}
	}

	return &evt, nil
}

type bus struct {
	warmup *Warmup
}

func (bus *bus) onEventS3(rcv <-chan swarm.Msg[*events.S3EventRecord], ack chan<- swarm.Msg[*events.S3EventRecord]) {
	for evt := range rcv {
		_, err := bus.warmup.Process(context.Background(), evt.Object.S3.Object.Key)
		if err != nil {
			slog.Error("failed to process s3 event",
				slog.String("bucket", evt.Object.S3.Bucket.Name),
				slog.String("key", evt.Object.S3.Object.Key),
				"error", err,
			)
			ack <- evt.Fail(err)
			continue
		}

		ack <- evt
	}
}
