//
// Copyright (C) 2023 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/mediatype
//

package main

import (
	"github.com/fogfish/mediatype/internal/awslambda/warmup"
)

func main() {
	warmup.Runner()
}
