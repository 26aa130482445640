package main

import (
	"log"
	"os"

	"github.com/jsm174/libaltsound/internal/sink"
	"github.com/jsm174/libaltsound/pkg/build"
)

func main() {
	if err := build.Initialize(); err != nil {
		log.Fatal(err)
	}

	if err := sink.Initialize(); err != nil {
		log.Fatal(err)
	}
	defer sink.Terminate()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
