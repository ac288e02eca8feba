package main

import (
	"log"

	"yashubustudio/densityfit/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatalf("densityfit: %v", err)
	}
}
