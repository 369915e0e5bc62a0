package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/arthurdotwork/forumlive/internal/adapters/primary/websocket"
	"github.com/arthurdotwork/forumlive/internal/domain"
	"github.com/google/uuid"
	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"

	ws "github.com/gorilla/websocket"
)

var errQuit = errors.New("quit")

func Client(ctx context.Context, c *cobra.Command) error {
	addr, _ := c.Flags().GetString("url")
	token, _ := c.Flags().GetString("token")
	roomFlags, _ := c.Flags().GetStringSlice("room")

	rooms := make([]domain.Room, 0, len(roomFlags))
	for _, flag := range roomFlags {
		room, err := ParseRoom(flag)
		if err != nil {
			return fmt.Errorf("ParseRoom: %w", err)
		}

		rooms = append(rooms, room)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := ws.DefaultDialer.DialContext(ctx, addr, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("ws.Dial: %s: %w", resp.Status, err)
		}

		return fmt.Errorf("ws.Dial: %w", err)
	}
	defer conn.Close()

	s := &clientSession{conn: conn}

	for _, room := range rooms {
		if err := s.send(websocket.Action{Action: websocket.ActionJoinRoom, Room: &room}); err != nil {
			return fmt.Errorf("s.send: %w", err)
		}
	}

	sink := make(chan error, 2)

	go receiveEnvelopes(c.OutOrStdout(), conn, sink)
	go func() {
		sink <- s.repl(c.InOrStdin(), c.OutOrStdout())
	}()

	select {
	case <-ctx.Done():
		s.close()
		return nil
	case err := <-sink:
		s.close()
		if err != nil && !errors.Is(err, errQuit) {
			return err
		}

		return nil
	}
}

// clientSession serializes writes: gorilla connections allow one writer.
type clientSession struct {
	conn *ws.Conn
	mu   sync.Mutex
}

func (s *clientSession) send(action websocket.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conn.WriteJSON(action)
}

func (s *clientSession) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
}

// repl reads commands such as `join conversation:<id>` until stdin closes.
func (s *clientSession) repl(in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)

	for scanner.Scan() {
		args, err := shellwords.Parse(strings.TrimSpace(scanner.Text()))
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}

		action, err := ParseCommand(args)
		if err != nil {
			if errors.Is(err, errQuit) {
				return err
			}

			fmt.Fprintf(out, "Error: %v\n", err)
			continue
		}

		if action == nil {
			continue
		}

		if err := s.send(*action); err != nil {
			return fmt.Errorf("s.send: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner.Err: %w", err)
	}

	return errQuit
}

func receiveEnvelopes(out io.Writer, conn *ws.Conn, sink chan error) {
	for {
		var envelope domain.Envelope
		if err := conn.ReadJSON(&envelope); err != nil {
			if ws.IsCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
				sink <- nil
				return
			}

			sink <- fmt.Errorf("conn.ReadJSON: %w", err)
			return
		}

		switch envelope.EventKind {
		case domain.EventServerClosing:
			fmt.Fprintf(out, "Server is closing: %s\n", envelope.Payload)
		case domain.EventRoomJoined:
			fmt.Fprintf(out, "Joined: %s\n", envelope.Payload)
		case domain.EventRoomLeft:
			fmt.Fprintf(out, "Left: %s\n", envelope.Payload)
		case domain.EventError:
			fmt.Fprintf(out, "Error: %s\n", envelope.Payload)
		default:
			fmt.Fprintf(out, "%s: %s\n", envelope.EventKind, envelope.Payload)
		}
	}
}

// ParseCommand turns a REPL line into the action to send. A blank line gives
// a nil action.
func ParseCommand(args []string) (*websocket.Action, error) {
	if len(args) == 0 {
		return nil, nil
	}

	switch args[0] {
	case "quit", "exit":
		return nil, errQuit
	case "ping":
		return &websocket.Action{Action: websocket.ActionPing}, nil
	case "join", "leave":
		if len(args) != 2 {
			return nil, fmt.Errorf("usage: %s kind:id", args[0])
		}

		room, err := ParseRoom(args[1])
		if err != nil {
			return nil, err
		}

		action := websocket.ActionJoinRoom
		if args[0] == "leave" {
			action = websocket.ActionLeaveRoom
		}

		return &websocket.Action{Action: action, Room: &room}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", args[0])
	}
}

// ParseRoom reads a room written as kind:id, e.g. conversation:<uuid>.
func ParseRoom(value string) (domain.Room, error) {
	kind, id, ok := strings.Cut(value, ":")
	if !ok {
		return domain.Room{}, fmt.Errorf("%w: %q is not kind:id", domain.ErrInvalidRoom, value)
	}

	roomID, err := uuid.Parse(id)
	if err != nil {
		return domain.Room{}, fmt.Errorf("%w: uuid.Parse: %w", domain.ErrInvalidRoom, err)
	}

	room := domain.NewRoom(domain.RoomKind(kind), roomID)
	if err := room.Validate(); err != nil {
		return domain.Room{}, err
	}

	return room, nil
}
