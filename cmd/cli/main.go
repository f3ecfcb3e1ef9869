// Command cli is a terminal companion for a running smartmark server.
// It drives the same synchronizer as the web dashboard over the HTTP
// API and websocket feed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/smartmark/smartmark/internal/client"
	"github.com/smartmark/smartmark/internal/logger"
	syncer "github.com/smartmark/smartmark/internal/sync"
)

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	addTitle := addCmd.String("title", "", "bookmark title")
	addURL := addCmd.String("url", "", "bookmark URL")

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	serverURL := os.Getenv("SMARTMARK_SERVER_URL")
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}
	token := os.Getenv("SMARTMARK_TOKEN")
	if token == "" {
		fmt.Fprintln(os.Stderr, "SMARTMARK_TOKEN is not set (copy the smartmark_session cookie value)")
		os.Exit(1)
	}

	c := client.New(serverURL, token)
	ctx := context.Background()

	switch os.Args[1] {
	case "list":
		doList(ctx, c)
	case "add":
		if err := addCmd.Parse(os.Args[2:]); err != nil {
			os.Exit(1)
		}
		if *addTitle == "" || *addURL == "" {
			addCmd.PrintDefaults()
			os.Exit(1)
		}
		doAdd(ctx, c, *addTitle, *addURL)
	case "del":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: cli del <id>")
			os.Exit(1)
		}
		id, err := strconv.ParseInt(os.Args[2], 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid id %q\n", os.Args[2])
			os.Exit(1)
		}
		doDelete(ctx, c, id)
	case "watch":
		doWatch(c)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: cli <command>

commands:
  list                     print the bookmark list
  add -title T -url U      save a bookmark
  del <id>                 delete a bookmark
  watch                    follow the list live until interrupted`)
}

func doList(ctx context.Context, c *client.Client) {
	bookmarks, err := c.FetchByOwner(ctx, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "list failed: %v\n", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tURL")
	for _, b := range bookmarks {
		fmt.Fprintf(w, "%d\t%s\t%s\n", b.ID, b.Title, b.URL)
	}
	_ = w.Flush()
}

func doAdd(ctx context.Context, c *client.Client, title, url string) {
	row, err := c.Insert(ctx, "", title, url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "add failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("saved #%d %s\n", row.ID, row.URL)
}

func doDelete(ctx context.Context, c *client.Client, id int64) {
	if err := c.DeleteByID(ctx, "", id); err != nil {
		fmt.Fprintf(os.Stderr, "delete failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("deleted #%d\n", id)
}

func doWatch(c *client.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.New("warn", true)
	s := syncer.New(c, c, c, log)
	s.Start(ctx)
	defer s.Close()

	for {
		select {
		case <-s.Notify():
			snap := s.Snapshot()
			if snap.Loading {
				continue
			}
			if snap.Err != "" {
				fmt.Fprintf(os.Stderr, "! %s\n", snap.Err)
			}
			fmt.Printf("--- %d bookmark(s) ---\n", len(snap.Bookmarks))
			for _, b := range snap.Bookmarks {
				fmt.Printf("#%d %s  %s\n", b.ID, b.Title, b.URL)
			}
		case <-ctx.Done():
			fmt.Println("bye")
			return
		}
	}
}
