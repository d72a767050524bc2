package host

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"
)

// TestLiveHostConversationList asks a running host for its conversation list.
// Skipped if the host socket doesn't exist.
func TestLiveHostConversationList(t *testing.T) {
	sockPath := SocketPath()
	if _, err := os.Stat(sockPath); os.IsNotExist(err) {
		t.Skip("host not running (no socket at", sockPath, ")")
	}

	client, err := Connect(sockPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()
	fmt.Println("Connected to host")

	if err := client.Send(GetConversationList()); err != nil {
		t.Fatalf("get_conversation_list: %v", err)
	}

	done := make(chan Event, 1)
	go func() {
		for {
			ev, err := client.ReadEvent()
			if err != nil {
				if !errors.Is(err, ErrClosed) {
					fmt.Printf("read error: %v\n", err)
				}
				close(done)
				return
			}
			fmt.Printf("  %s event\n", ev.Type)
			if ev.Type == EventConversationList {
				done <- ev
				return
			}
		}
	}()

	select {
	case ev, ok := <-done:
		if !ok {
			t.Fatal("host closed before sending conversation_list")
		}
		fmt.Printf("Conversations: %d\n", len(ev.Conversations))
		for _, c := range ev.Conversations {
			fmt.Printf("  %s current=%v messages=%d %q\n", c.ID, c.IsCurrent, c.MessageCount, c.Preview)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no conversation_list within 5s")
	}
}
