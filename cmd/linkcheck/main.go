// linkcheck probes a bridge deployment: it pings the game server's
// public port and then watches the websocket link for a short window,
// printing every frame it sees.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	appcfg "github.com/luoxu/craft-telegram-bridge/internal/config"
	"github.com/luoxu/craft-telegram-bridge/internal/gamelink"
	"github.com/luoxu/craft-telegram-bridge/internal/mcping"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (optional, env vars override)")
	window := flag.Duration("window", 10*time.Second, "how long to watch the websocket link")
	flag.Parse()

	cfg, err := appcfg.Load(*configPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if cfg.Server.Host != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		st, err := mcping.Ping(ctx, cfg.Server.Host, cfg.Server.Port)
		cancel()
		if err != nil {
			log.Printf("server ping error: %v", err)
		} else {
			log.Printf("server ping ok: version=%s players=%d/%d motd=%q",
				st.Version.Name, st.Players.Online, st.Players.Max, st.Description.Text)
		}
	} else {
		log.Println("server host not set; skipping ping")
	}

	link := gamelink.New(cfg.Server.WSURL, 0, 0, nil)
	link.OnStateChange(func(state gamelink.State) {
		log.Printf("link state: %s", state)
	})
	for _, channel := range []string{"/message", "/status"} {
		for _, event := range []string{"join", "quit", "death", "advancement", "chat", "players", "performance"} {
			ch, ev := channel, event
			link.On(ch, ev, func(data []byte) {
				fmt.Printf("frame channel=%s event=%s data=%s\n", ch, ev, data)
			})
		}
	}

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := link.Connect(cctx); err != nil {
		log.Printf("link connect error: %v", err)
		return
	}

	t := time.NewTimer(*window)
	<-t.C

	_ = link.Close(context.Background())
}
