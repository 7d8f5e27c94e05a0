// Package main runs a demo WebSocket subscriber against a local push API:
// it joins a channel, publishes one element broadcast over HTTP, and prints
// every frame it receives.
package main

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	channel := os.Getenv("CHANNEL")
	if channel == "" {
		channel = "demo"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/channels/" + channel + "/ws"}
	hdr := http.Header{}
	hdr.Set("X-User-Id", "1")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %q", string(msg))
		}
	}()

	// Publish an element into the channel we just joined
	time.Sleep(500 * time.Millisecond)
	body := []byte(`{"html":"<div id=\"demo\">hello from ws_client</div>","mode":"append","selector":"#feed"}`)
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/channels/"+channel+"/elements", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	log.Printf("publish -> %s", resp.Status)

	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
