package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// botctl sends one command to the running daemon over its websocket
// command channel and prints the ack.
//
// Usage:
//
//	botctl START
//	botctl BUY -pair BTCUSDT -score 0.75
//	botctl CLOSE -pair BTCUSDT
func main() {
	addr := flag.String("addr", "localhost:8080", "daemon address")
	pair := flag.String("pair", "", "trading pair")
	score := flag.Float64("score", 0, "signal score for BUY/SELL")
	timeout := flag.Duration("timeout", 5*time.Second, "dial and ack timeout")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: botctl ACTION [flags]\n\nflags:\n")
		flag.PrintDefaults()
	}

	args := os.Args[1:]
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		flag.Usage()
		os.Exit(2)
	}
	action := args[0]
	flag.CommandLine.Parse(args[1:])

	var b strings.Builder
	fmt.Fprintf(&b, "ACTION=%s\n", strings.ToUpper(action))
	if *pair != "" {
		fmt.Fprintf(&b, "PAIR=%s\n", strings.ToUpper(*pair))
	}
	if *score != 0 {
		fmt.Fprintf(&b, "SCORE=%f\n", *score)
	}
	fmt.Fprintf(&b, "TIMESTAMP=%d\n", time.Now().Unix())

	dialer := websocket.Dialer{HandshakeTimeout: *timeout}
	conn, _, err := dialer.Dial("ws://"+*addr+"/ws/commands", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(b.String())); err != nil {
		fmt.Fprintf(os.Stderr, "send: %v\n", err)
		os.Exit(1)
	}

	conn.SetReadDeadline(time.Now().Add(*timeout))
	_, ack, err := conn.ReadMessage()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ack: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(string(ack))
	if strings.HasPrefix(string(ack), "ERR") {
		os.Exit(1)
	}
}
