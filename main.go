package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"parcel-chat-client/internal/api"
	"parcel-chat-client/internal/client"
	"parcel-chat-client/internal/config"
	"parcel-chat-client/internal/protocol"
	"parcel-chat-client/internal/session"
)

func main() {
	cfg := config.Load()

	apiBase := flag.String("api", cfg.APIBaseURL, "marketplace API base URL")
	conversation := flag.String("conversation", cfg.ConversationID, "conversation id")
	token := flag.String("token", cfg.Token, "access token")
	userID := flag.String("user", cfg.UserID, "local user id")
	userName := flag.String("name", cfg.UserName, "local user display name")
	metricsAddr := flag.String("metrics", "", "expose prometheus metrics on this address (e.g. :9090)")
	flag.Parse()

	if *metricsAddr != "" {
		go func() {
			if err := http.ListenAndServe(*metricsAddr, promhttp.Handler()); err != nil {
				log.Printf("metrics listener error: %v", err)
			}
		}()
	}

	if *conversation == "" {
		log.Fatal("a conversation id is required (-conversation or CHAT_CONVERSATION_ID)")
	}
	if *userID == "" {
		log.Fatal("a user id is required (-user or CHAT_USER_ID)")
	}
	name := *userName
	if name == "" {
		name = *userID
	}

	apiClient := api.NewClient(*apiBase, *token)
	conn := client.New(client.Config{
		BaseURL:        *apiBase,
		ConversationID: *conversation,
		Token:          *token,
	})

	// Print messages appended since the last update. Replacements of
	// optimistic entries by their server echo do not reprint.
	var (
		mu      sync.Mutex
		printed int
		sess    *session.Session
	)
	printNew := func() {
		mu.Lock()
		defer mu.Unlock()
		msgs := sess.Messages()
		for ; printed < len(msgs); printed++ {
			m := msgs[printed]
			fmt.Printf("\r%s: %s\n> ", m.SenderName, m.Content)
		}
	}

	sess = session.New(session.Config{
		ConversationID: *conversation,
		LocalUserID:    *userID,
		LocalUserName:  name,
		History:        apiClient,
		ReadMarker:     apiClient,
		Conn:           conn,
		OnUpdate:       func() { printNew() },
		OnPeerTyping: func(peerID string, isTyping bool) {
			if isTyping {
				fmt.Printf("\r%s is typing...\n> ", peerID)
			}
		},
		OnPeerStatus: func(peerID string, status protocol.UserStatus) {
			fmt.Printf("\r%s is %s\n> ", peerID, status)
		},
		OnConnected: func() {
			fmt.Print("\rconnected\n> ")
		},
		OnDisconnected: func() {
			fmt.Print("\rdisconnected\n> ")
		},
		OnError: func(err error) {
			fmt.Printf("\rconnection error: %v\n> ", err)
		},
	})

	if err := sess.Start(context.Background()); err != nil {
		log.Fatalf("start chat session: %v", err)
	}
	defer sess.Stop()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-interrupt:
			fmt.Println("\rbye")
			return
		case text, ok := <-lines:
			if !ok || text == "/quit" {
				return
			}
			if text == "" {
				fmt.Print("> ")
				continue
			}
			sess.Keystroke()
			sess.SendText(text)
			fmt.Print("> ")
		}
	}
}
