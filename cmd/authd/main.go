package main

import (
	"log"

	"github.com/tech-arch1tect/authority"
)

func main() {
	app, err := authority.New()
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	app.Run()
}
