//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

// Package awsmediatype provisions serverless rendering of media type
// variants: originals uploaded to the inbox bucket are rendered through
// every srcset variant into the media bucket served by CDN.
package awsmediatype

import (
	"encoding/json"
	"strconv"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsevents"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambda"
	"github.com/aws/aws-cdk-go/awscdk/v2/awslambdaeventsources"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssqs"
	"github.com/aws/jsii-runtime-go"
	"github.com/fogfish/mediatype"
	"github.com/fogfish/scud"
	"github.com/fogfish/swarm/broker/events3"
	"github.com/fogfish/tagver"

	// Note: required to import engine so that all deps used it are lifted to client.
	//       app that uses only stack fails to build if image manipulation library is not imported.
	//       e.g. github.com/anthonynsimon/bild
	_ "github.com/fogfish/mediatype/internal/awslambda/warmup"
)

// Raster formats rendered by the warm-up function
var rasterSuffixes = []string{".jpg", ".jpeg", ".png", ".gif"}

type WarmupProps struct {
	*awscdk.StackProps

	// Namespace for cloud resource provisioning
	Namespace string

	// Version of the deployment
	Version tagver.Version

	// Media types rendered for each uploaded file (mandatory).
	//
	//  mediatype.Types(
	//    mediatype.Define("hero").Apply(
	//      mediatype.Resize(1920, 0),
	//      mediatype.SrcsetOf(1920, "480 480w, 960 960w, 1920 1920w"),
	//    ),
	//  )
	//
	Types []mediatype.Type

	// The amount of memory, in MB, that is allocated to your Lambda function.
	// Default: 128.
	//
	MemorySize *float64

	// Deadline for rendering all variants of the file.
	// Default: 60 seconds
	//
	Deadline awscdk.Duration

	// Retention of failed operations in Dead-Letter Queue
	// Default: 1 day
	//
	FailureRetention awscdk.Duration

	// Expiration of originals in the inbox
	// Default: 1 day
	//
	Expiration awscdk.Duration

	// EventBus to emit VariantsRendered upon the completion
	// Default: None
	//
	EventBus awsevents.IEventBus

	// AWS S3 bucket to write rendered variants (mandatory)
	Media awss3.IBucket
}

func (props *WarmupProps) assert() {
	if len(props.Types) == 0 {
		panic("\n\nMedia types are not defined.")
	}

	if props.Media == nil {
		panic("\n\nMedia bucket is not defined.")
	}

	if props.Deadline == nil {
		props.Deadline = awscdk.Duration_Seconds(jsii.Number(60.0))
	}

	if props.FailureRetention == nil {
		props.FailureRetention = awscdk.Duration_Days(jsii.Number(1.0))
	}

	if props.Expiration == nil {
		props.Expiration = awscdk.Duration_Days(jsii.Number(1.0))
	}
}

// Warmup renders srcset variants of uploaded originals
type Warmup struct {
	awscdk.Stack
	namespace string
	version   tagver.Version

	dlq   awssqs.Queue
	Inbox awss3.Bucket
}

func NewWarmup(app awscdk.App, id *string, props *WarmupProps) *Warmup {
	props.assert()

	stack := &Warmup{
		Stack:     awscdk.NewStack(app, id, props.StackProps),
		namespace: props.Namespace,
		version:   props.Version,
	}

	stack.createDLQ(props)
	stack.createInboxBucket(props)
	stack.createRenderer(props)

	return stack
}

func (stack *Warmup) resource(id string) string {
	return stack.version.Tag(stack.namespace + "-" + id)
}

func (stack *Warmup) createDLQ(props *WarmupProps) {
	name := stack.resource("dlq")

	stack.dlq = awssqs.NewQueue(stack.Stack, jsii.String("DeadLetterQueue"),
		&awssqs.QueueProps{
			QueueName:       jsii.String(name),
			RetentionPeriod: props.FailureRetention,
		},
	)
}

func (stack *Warmup) createInboxBucket(props *WarmupProps) {
	name := stack.resource("inbox")

	policy := awscdk.RemovalPolicy_RETAIN
	if tagver.IsTest(props.Version) {
		policy = awscdk.RemovalPolicy_DESTROY
	}

	stack.Inbox = awss3.NewBucket(stack.Stack, jsii.String("Inbox"),
		&awss3.BucketProps{
			BucketName:    jsii.String(name),
			RemovalPolicy: policy,
		},
	)

	stack.Inbox.AddLifecycleRule(&awss3.LifecycleRule{
		Id:         jsii.String("Garbage collector"),
		Enabled:    jsii.Bool(true),
		Expiration: props.Expiration,
	})
}

func (stack *Warmup) createRenderer(props *WarmupProps) {
	name := stack.resource("warmup")
	tout := props.Deadline.ToSeconds(&awscdk.TimeConversionOptions{})

	types, err := json.Marshal(props.Types)
	if err != nil {
		panic("\n\nMedia types are not serializable: " + err.Error())
	}

	envs := map[string]*string{
		"CONFIG_STORE_INBOX":          stack.Inbox.BucketName(),
		"CONFIG_STORE_MEDIA":          props.Media.BucketName(),
		"CONFIG_MEDIA_TYPES":          jsii.String(string(types)),
		"CONFIG_SWARM_TIME_TO_FLIGHT": jsii.String(strconv.Itoa(int(*tout))),
	}
	if props.EventBus != nil {
		envs["CONFIG_SINK_EVENTBUS"] = props.EventBus.EventBusName()
	}

	filters := make([]*awss3.NotificationKeyFilter, len(rasterSuffixes))
	for i, suffix := range rasterSuffixes {
		filters[i] = &awss3.NotificationKeyFilter{Suffix: jsii.String(suffix)}
	}

	sink := events3.NewSink(stack.Stack, jsii.String("Warmup"),
		&events3.SinkProps{
			Bucket: stack.Inbox,
			EventSource: &awslambdaeventsources.S3EventSourceProps{
				Events: &[]awss3.EventType{
					awss3.EventType_OBJECT_CREATED,
				},
				Filters: &filters,
			},
			Function: &scud.FunctionGoProps{
				SourceCodeModule: "github.com/fogfish/mediatype",
				SourceCodeLambda: "cmd/lambda/warmup",
				FunctionProps: &awslambda.FunctionProps{
					FunctionName:           jsii.String(name),
					Timeout:                props.Deadline,
					DeadLetterQueueEnabled: jsii.Bool(true),
					DeadLetterQueue:        stack.dlq,
					MemorySize:             props.MemorySize,
					Environment:            &envs,
				},
			},
		},
	)
	stack.Inbox.GrantRead(sink.Handler, nil)
	props.Media.GrantWrite(sink.Handler, nil, nil)
	if props.EventBus != nil {
		props.EventBus.GrantPutEventsTo(sink.Handler, nil)
	}
}
