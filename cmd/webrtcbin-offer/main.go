// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// webrtcbin-offer is a thin example binary that exercises create-offer and
// create-data-channel end to end, for manual smoke testing against a pasted
// remote answer.
package main

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/webrtcbin/webrtcbin"
)

func main() {
	pc, err := webrtcbin.NewPeerConnection(webrtcbin.Configuration{}, webrtcbin.SettingEngine{})
	if err != nil {
		panic(err)
	}
	defer func() {
		if cErr := pc.Close(); cErr != nil {
			fmt.Printf("cannot close peer connection: %v\n", cErr)
		}
	}()

	pc.OnConnectionStateChange(func(state webrtcbin.PeerConnectionState) {
		fmt.Printf("connection state changed: %s\n", state)
	})

	dc, err := pc.CreateDataChannel("chat", webrtcbin.DataChannelInit{Ordered: true})
	if err != nil {
		panic(err)
	}
	dc.OnOpen(func() {
		fmt.Printf("data channel %q open, sending hello\n", dc.Label())
		if sendErr := dc.SendString("hello from webrtcbin-offer"); sendErr != nil {
			fmt.Printf("send failed: %v\n", sendErr)
		}
	})
	dc.OnMessage(func(msg webrtcbin.DataChannelMessage) {
		fmt.Printf("message from %q: %s\n", dc.Label(), string(msg.Data))
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		panic(err)
	}
	if err := pc.SetLocalDescription(*offer); err != nil {
		panic(err)
	}

	fmt.Println(encode(offer))
	fmt.Println("paste the remote answer and press enter:")

	answer := webrtcbin.SessionDescription{}
	decode(readUntilNewline(), &answer)
	if err := pc.SetRemoteDescription(answer); err != nil {
		panic(err)
	}

	select {}
}

func readUntilNewline() (in string) {
	var err error

	r := bufio.NewReader(os.Stdin)
	for {
		in, err = r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			panic(err)
		}
		if in = strings.TrimSpace(in); len(in) > 0 {
			break
		}
	}
	return in
}

func encode(obj *webrtcbin.SessionDescription) string {
	b, err := json.Marshal(obj)
	if err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(b)
}

func decode(in string, obj *webrtcbin.SessionDescription) {
	b, err := base64.StdEncoding.DecodeString(in)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(b, obj); err != nil {
		panic(err)
	}
}
