/*
vudpcat dials a voxel-game server, performs the handshake, prints
connected/protocol/disconnect events to stdout, and pipes stdin lines onto
a reliable channel as outgoing application messages.

Usage:

	vudpcat -addr host:port
*/
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/time/rate"

	"github.com/vgnet/vudp"
	"github.com/vgnet/vudp/rudp"
)

func main() {
	addr := flag.String("addr", "", "server address host:port")
	channel := flag.Uint("channel", uint(vudp.Fast), "channel for stdin lines: 0=lossy 1=fast 2=slow")
	protocolID := flag.Uint("protocol", 1, "protocol id to tag outgoing lines with")
	linesPerSec := flag.Float64("rate", 50, "max stdin lines enqueued per second")
	flag.Parse()

	if *addr == "" {
		fmt.Fprintln(os.Stderr, "usage: vudpcat -addr host:port")
		os.Exit(1)
	}

	sess, err := vudp.Dial(vudp.Options{Addr: *addr})
	if err != nil {
		log.Fatal(err)
	}
	defer sess.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range sess.Events() {
			switch ev.Kind {
			case rudp.EventConnected:
				log.Print("connected")
			case rudp.EventProtocol:
				log.Printf("protocol %d on channel %d: %q", ev.ProtocolID, ev.Channel, ev.Payload)
			case rudp.EventDisconnect:
				log.Printf("disconnected: %s", ev.Reason)
				return
			}
		}
	}()

	// The core reliability engine itself is never rate-limited (no
	// congestion control is in scope); this bounds only how fast this
	// demo tool turns stdin lines into QueueOutgoing calls, so a slow
	// peer can't be flooded by a fast pipe.
	limiter := rate.NewLimiter(rate.Limit(*linesPerSec), 1)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if err := limiter.Wait(context.Background()); err != nil {
			log.Fatal(err)
		}
		line := scanner.Text()
		if err := sess.QueueOutgoing(vudp.Channel(*channel), byte(*protocolID), []byte(line)); err != nil {
			log.Print("queue: ", err)
		}
	}

	<-done
}
