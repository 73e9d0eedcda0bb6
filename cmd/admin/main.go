package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"pairchat/backend/internal/config"
	"pairchat/backend/internal/keygen"
	"pairchat/backend/internal/models"
	"pairchat/backend/internal/storage"
)

const usage = `Usage: admin [flags] <command> [args]

Commands:
  rooms             list active rooms
  history <KEY>     print the messages of a private room
  close <room_id>   mark a room as ended
  profile <user_id> show the stored profile of a user
`

var errUsage = errors.New("invalid usage")

func main() {
	var asJSON bool
	flagSet := pflag.NewFlagSet("admin", pflag.ContinueOnError)
	flagSet.BoolVar(&asJSON, "json", false, "print results as JSON")
	flagSet.BoolP("help", "h", false, "show help")
	flagSet.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}
	if help, _ := flagSet.GetBool("help"); help {
		flagSet.Usage()
		return
	}

	cfg := config.Load()
	db, err := storage.OpenDatabase(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	storageSvc := storage.NewStorageService(db, nil) // Redis тут не потрібен

	if err := run(storageSvc, flagSet.Args(), asJSON, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, errUsage) {
			flagSet.Usage()
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// run executes one admin command against s.
func run(s *storage.Service, args []string, asJSON bool, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "rooms":
		rooms, err := s.ActiveRooms()
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(out, rooms)
		}
		printRooms(out, rooms)
		return nil

	case "history":
		if len(args) != 2 {
			return fmt.Errorf("%w: history <KEY>", errUsage)
		}
		key := keygen.Normalize(args[1])
		room, err := s.FindRoomByKey(key)
		if err != nil {
			return err
		}
		if room == nil {
			return fmt.Errorf("no room with key %s", key)
		}
		history, err := s.History(room.ID)
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(out, history)
		}
		for _, h := range history {
			fmt.Fprintf(out, "%s  %-12s %s\n", h.CreatedAt.Format(time.RFC3339), h.SenderID, h.Content)
		}
		return nil

	case "close":
		if len(args) != 2 {
			return fmt.Errorf("%w: close <room_id>", errUsage)
		}
		id, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid room id %q", args[1])
		}
		if _, err := s.GetRoomByID(uint(id)); err != nil {
			return err
		}
		if err := s.DeactivateRoom(uint(id)); err != nil {
			return err
		}
		fmt.Fprintf(out, "Room %d has been closed.\n", id)
		return nil

	case "profile":
		if len(args) != 2 {
			return fmt.Errorf("%w: profile <user_id>", errUsage)
		}
		p, err := s.GetProfile(args[1])
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("no profile for %s", args[1])
		}
		if asJSON {
			return writeJSON(out, p)
		}
		fmt.Fprintf(out, "Purpose:  %s\nBio:      %s\nKeywords: %v\n", p.Purpose, p.Bio, p.Keywords)
		return nil
	}

	return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
}

func printRooms(out io.Writer, rooms []models.ChatRoom) {
	if len(rooms) == 0 {
		fmt.Fprintln(out, "No active rooms.")
		return
	}
	for _, r := range rooms {
		key := "-"
		if r.Key != nil {
			key = *r.Key
		}
		fmt.Fprintf(out, "%-6d %-8s %-8s %-12s %-12s %s\n",
			r.ID, r.Kind, key, r.User1ID, r.User2ID, r.CreatedAt.Format(time.RFC3339))
	}
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
