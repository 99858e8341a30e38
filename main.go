//go:generate weaver generate ./pkg/api

package main

import (
	"context"
	"log"

	"nework/pkg/api"

	"github.com/ServiceWeaver/weaver"
)

// entry file of the nework client service; the code lives under "pkg"
func main() {
	if err := weaver.Run(context.Background(), api.Serve); err != nil {
		log.Fatal(err)
	}
}
