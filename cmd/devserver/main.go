package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parcel-chat-client/internal/devserver"
)

func main() {
	addr := flag.String("addr", ":8083", "listen address")
	flag.Parse()

	srv := devserver.New()
	router := srv.Router()
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.Printf("dev chat server listening on %s", *addr)
	if err := http.ListenAndServe(*addr, router); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
