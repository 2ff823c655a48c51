package main

import (
	"embed"
	"io/fs"
	"log"
	"net/http"
)

//go:embed web
var webFiles embed.FS

func main() {
	webRoot, err := fs.Sub(webFiles, "web")
	if err != nil {
		log.Fatal(err)
	}

	mux := http.NewServeMux()
	NewServer().RegisterRoutes(mux, webRoot)

	log.Println("scalarflow explorer listening on :8080")
	log.Fatal(http.ListenAndServe(":8080", mux))
}
