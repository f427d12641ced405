//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

package main

import (
	"os"
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/fogfish/mediatype"
	"github.com/fogfish/mediatype/awsmediatype"
	"github.com/fogfish/tagver"
)

//
//	cdk deploy \
//	  -c vsn=mediatype@pr00 \
//	  -c types=responsive \
//	  -c site=media.example.com \
//	  -c tls-cert-arn=arn:aws:acm:us-east-1:000000000000:certificate/dad...cafe
//

func main() {
	app := awscdk.NewApp(nil)
	vsn := FromContextVsn(app)
	types := FromContextTypes(app)
	config := &awscdk.StackProps{
		Env: &awscdk.Environment{
			Account: jsii.String(os.Getenv("CDK_DEFAULT_ACCOUNT")),
			Region:  jsii.String(os.Getenv("CDK_DEFAULT_REGION")),
		},
	}

	edge := awsmediatype.NewEdge(app, jsii.String("mediatype-edge"),
		&awsmediatype.EdgeProps{
			StackProps:        config,
			Namespace:         "mediatype",
			Version:           vsn.Get("mediatype", "main"),
			Site:              jsii.String(FromContext(app, "site")),
			TlsCertificateArn: jsii.String(FromContext(app, "tls-cert-arn")),
		},
	)

	awsmediatype.NewWarmup(app, jsii.String("mediatype-warmup"),
		&awsmediatype.WarmupProps{
			StackProps: config,
			Namespace:  "mediatype",
			Version:    vsn.Get("mediatype", "main"),
			Types:      types,
			MemorySize: jsii.Number(1024),
			Media:      edge.Media,
		},
	)

	app.Synth(nil)
}

func FromContextVsn(app awscdk.App) tagver.Versions {
	return tagver.NewVersions(FromContext(app, "vsn"))
}

func FromContextTypes(app awscdk.App) []mediatype.Type {
	uid := FromContext(app, "types")

	types, has := awsmediatype.Types[uid]
	if !has {
		sb := strings.Builder{}
		sb.WriteString("\n\nMedia types are not defined, define one of the following in the context `-c types=...`\n")
		for preset := range awsmediatype.Types {
			sb.WriteString("  - " + preset + "\n")
		}
		sb.WriteString("  - [optionally] specify own media types in awsmediatype/config.go\n")

		panic(sb.String())
	}

	return types
}

func FromContext(app awscdk.App, key string) string {
	val := app.Node().TryGetContext(jsii.String(key))
	switch v := val.(type) {
	case string:
		return v
	default:
		return ""
	}
}
