// Package main provides the chat CLI entry point for testing.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/alecthomas/kingpin/v2"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
)

var (
	app    = kingpin.New("chatspot-chatcli", "chatspot chat client for testing")
	server = app.Flag("server", "Server WebSocket URL").Default("ws://localhost:2000/ws").String()

	// chat command
	chatCmd      = app.Command("chat", "Queue for a partner and chat interactively")
	chatID       = chatCmd.Arg("id", "Your user ID").Required().String()
	chatGender   = chatCmd.Arg("gender", "Your gender (M/F)").Required().String()
	chatInterest = chatCmd.Arg("interested-in", "Preferred partner gender, or 'any'").Default("any").String()

	// counts command
	countsCmd = app.Command("counts", "Print current user counts")
)

type wsFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	conn, _, err := websocket.DefaultDialer.Dial(*server, nil)
	if err != nil {
		fmt.Printf("Error: failed to connect to %s: %v\n", *server, err)
		os.Exit(1)
	}
	defer conn.Close()

	switch command {
	case chatCmd.FullCommand():
		chat(conn, *chatID, *chatGender, *chatInterest)
	case countsCmd.FullCommand():
		counts(conn)
	}
}

func sendEvent(conn *websocket.Conn, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.WriteJSON(wsFrame{Event: event, Data: data})
}

// chat queues for a partner, then relays stdin lines into the chat room.
func chat(conn *websocket.Conn, id, gender, interest string) {
	if err := sendEvent(conn, "readyToPair", map[string]string{
		"id": id, "gender": gender, "interestedIn": interest,
	}); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	var mu sync.Mutex
	var roomID string

	// Reader goroutine prints everything the server pushes.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var f wsFrame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}

			switch f.Event {
			case "waiting", "timeout", "welcomeNote", "leftChatRoomMessage", "closedApp", "chatEnded", "message_blocked", "error":
				var text string
				_ = json.Unmarshal(f.Data, &text)
				fmt.Printf("* %s\n", text)

			case "pair":
				var pair struct {
					ID     string `json:"id"`
					Gender string `json:"gender"`
					Name   string `json:"name"`
					ChatID string `json:"chatId"`
					IsBot  bool   `json:"isBot"`
				}
				_ = json.Unmarshal(f.Data, &pair)

				room := pair.ChatID
				if room == "" {
					// Human pairs derive a shared room from both IDs.
					ids := []string{id, pair.ID}
					sort.Strings(ids)
					room = strings.Join(ids, "_")
					_ = sendEvent(conn, "join", map[string]string{"chatId": room})
				}
				mu.Lock()
				roomID = room
				mu.Unlock()

				who := pair.ID
				if pair.Name != "" {
					who = pair.Name
				}
				fmt.Printf("* paired with %s (%s) - type to chat\n", who, pair.Gender)

			case "message":
				var msg struct {
					SenderID string `json:"senderId"`
					Name     string `json:"name"`
					Message  string `json:"message"`
				}
				_ = json.Unmarshal(f.Data, &msg)
				who := msg.SenderID
				if msg.Name != "" {
					who = msg.Name
				}
				fmt.Printf("%s: %s\n", who, msg.Message)

			case "typingMessage":
				fmt.Println("* partner is typing...")

			case "updateUserCount":
				// Presence noise, skip.
			}
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "/quit" {
			mu.Lock()
			room := roomID
			mu.Unlock()
			if room != "" {
				_ = sendEvent(conn, "leftChatRoom", map[string]string{"chatId": room})
			}
			return
		}

		mu.Lock()
		room := roomID
		mu.Unlock()
		if room == "" {
			fmt.Println("* not paired yet")
			continue
		}
		if err := sendEvent(conn, "sendMessage", map[string]any{
			"chatId": room, "senderId": id, "message": text,
		}); err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
	}
	<-done
}

// counts requests a presence snapshot and prints the first one.
func counts(conn *websocket.Conn) {
	if err := sendEvent(conn, "getWaitingUsers", map[string]string{}); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	for {
		var f wsFrame
		if err := conn.ReadJSON(&f); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if f.Event != "updateUserCount" {
			continue
		}
		var c struct {
			TotalUsers   int `json:"totalUsers"`
			WaitingUsers int `json:"waitingUsers"`
		}
		_ = json.Unmarshal(f.Data, &c)
		fmt.Printf("online: %d  waiting: %d\n", c.TotalUsers, c.WaitingUsers)
		return
	}
}
