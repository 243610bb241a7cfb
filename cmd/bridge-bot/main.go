package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/luoxu/craft-telegram-bridge/internal/bridge"
	appcfg "github.com/luoxu/craft-telegram-bridge/internal/config"
	"github.com/luoxu/craft-telegram-bridge/internal/gamelink"
	"github.com/luoxu/craft-telegram-bridge/internal/identity"
	"github.com/luoxu/craft-telegram-bridge/internal/locale"
	"github.com/luoxu/craft-telegram-bridge/internal/mcping"
	"github.com/luoxu/craft-telegram-bridge/internal/obslog"
	"github.com/luoxu/craft-telegram-bridge/internal/telegram"
)

var playerNameRe = regexp.MustCompile(`^\w+$`)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (optional, env vars override)")
	flag.Parse()

	cfg, err := appcfg.Load(*configPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := obslog.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer logger.Sync()

	cat, err := locale.New(cfg.Locale.File)
	if err != nil {
		logger.Fatal("locale init failed", zap.Error(err))
	}
	store, err := identity.Open(cfg.Storage.Dir, logger)
	if err != nil {
		logger.Fatal("identity store init failed", zap.Error(err))
	}

	tg, err := telegram.New(cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.Telegram.Proxy, logger)
	if err != nil {
		logger.Fatal("telegram init failed", zap.Error(err))
	}

	link := gamelink.New(cfg.Server.WSURL, cfg.Server.ReconnectAttempts, cfg.Server.ReconnectDelay, logger)
	link.OnStateChange(func(state gamelink.State) {
		logger.Info("game link state", zap.Stringer("state", state))
	})

	b := bridge.New(store, cat, tg, link, logger)
	b.BindTransport(link)

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := link.Connect(cctx); err != nil {
		logger.Warn("game link connect failed, retrying in background", zap.Error(err))
	}
	ccancel()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := tg.SetCommands(ctx); err != nil {
		logger.Warn("set telegram commands failed", zap.Error(err))
	}

	app := &application{cfg: cfg, cat: cat, b: b, tg: tg, link: link, logger: logger}

	if err := tg.Listen(ctx, app.handleMessage); err != nil && ctx.Err() == nil {
		logger.Error("telegram listener stopped", zap.Error(err))
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	if err := link.Close(closeCtx); err != nil {
		logger.Warn("game link close failed", zap.Error(err))
	}
}

type application struct {
	cfg    *appcfg.AppConfig
	cat    *locale.Catalog
	b      *bridge.Bridge
	tg     *telegram.Client
	link   *gamelink.Link
	logger *zap.Logger
}

func (a *application) handleMessage(ctx context.Context, in bridge.Incoming) {
	if cmd, args, ok := a.command(in); ok {
		// keep the polling loop responsive
		go a.handleCommand(context.WithoutCancel(ctx), in, cmd, args)
		return
	}
	go func(ctx context.Context) {
		rctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := a.b.RelayIncoming(rctx, in); err != nil {
			a.logger.Warn("relay to game server failed", zap.Error(err))
		}
	}(context.WithoutCancel(ctx))
}

// command splits "/cmd@bot arg..." into its name and arguments. Commands
// addressed to a different bot in the same group are ignored entirely.
func (a *application) command(in bridge.Incoming) (string, []string, bool) {
	if in.Kind != bridge.KindText || !strings.HasPrefix(in.Text, "/") {
		return "", nil, false
	}
	parts := strings.Fields(in.Text)
	cmd := strings.TrimPrefix(parts[0], "/")
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		if !strings.EqualFold(cmd[at+1:], a.tg.Username()) {
			return "", nil, false
		}
		cmd = cmd[:at]
	}
	if cmd == "" {
		return "", nil, false
	}
	return strings.ToLower(cmd), parts[1:], true
}

func (a *application) handleCommand(ctx context.Context, in bridge.Incoming, cmd string, args []string) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	a.b.Observe(in.Sender)

	switch cmd {
	case "help", "start":
		a.reply(ctx, in, a.render("bridge.cmd.help", a.serverName()))
	case "status":
		a.handleStatus(ctx, in)
	case "performance":
		if err := a.link.Emit(ctx, bridge.ChannelStatus, "performance", nil); err != nil {
			a.logger.Warn("performance request failed", zap.Error(err))
			a.reply(ctx, in, a.render("bridge.cmd.error"))
		}
	case "list":
		if err := a.link.Emit(ctx, bridge.ChannelStatus, "players", nil); err != nil {
			a.logger.Warn("player list request failed", zap.Error(err))
			a.reply(ctx, in, a.render("bridge.cmd.error"))
		}
	case "bind":
		a.handleBind(ctx, in, args)
	case "unbind":
		a.handleUnbind(ctx, in)
	case "get_me":
		a.handleGetMe(ctx, in)
	case "at":
		a.handleAt(ctx, in, args)
	default:
		a.logger.Debug("unknown command ignored", zap.String("command", cmd))
	}
}

func (a *application) handleStatus(ctx context.Context, in bridge.Incoming) {
	text := a.render("bridge.status.header", a.serverName(),
		net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port)))

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	st, err := mcping.Ping(pingCtx, a.cfg.Server.Host, a.cfg.Server.Port)
	cancel()
	if err != nil {
		a.logger.Warn("server ping failed", zap.Error(err))
		text += a.render("bridge.status.offline")
	} else {
		text += a.render("bridge.status.online",
			st.Version.Name,
			strconv.Itoa(st.Players.Online),
			strconv.Itoa(st.Players.Max),
			st.Description.Text)
	}
	a.reply(ctx, in, text)
}

func (a *application) handleBind(ctx context.Context, in bridge.Incoming, args []string) {
	if len(args) == 0 {
		a.reply(ctx, in, a.render("bridge.cmd.bind.usage"))
		return
	}
	name := args[0]
	if !playerNameRe.MatchString(name) {
		a.reply(ctx, in, a.render("bridge.cmd.bind.invalid"))
		return
	}

	account := strconv.FormatInt(in.Sender.ID, 10)
	if err := a.b.Store().Bind(account, name); err != nil {
		if holder, ok := a.b.Store().AccountByPlayer(name); ok {
			shown := holder
			if plain, ok := a.b.AccountPlain(ctx, holder); ok {
				shown = plain
			}
			a.reply(ctx, in, a.render("bridge.cmd.bind.taken", shown))
			return
		}
		a.logger.Error("bind failed", zap.Error(err))
		a.reply(ctx, in, a.render("bridge.cmd.error"))
		return
	}
	a.reply(ctx, in, a.render("bridge.cmd.bind.ok", name))
}

func (a *application) handleUnbind(ctx context.Context, in bridge.Incoming) {
	account := strconv.FormatInt(in.Sender.ID, 10)
	if err := a.b.Store().Unbind(account); err != nil {
		a.reply(ctx, in, a.render("bridge.cmd.unbind.none"))
		return
	}
	a.reply(ctx, in, a.render("bridge.cmd.unbind.ok"))
}

func (a *application) handleGetMe(ctx context.Context, in bridge.Incoming) {
	shown := in.Sender.Username
	if shown == "" {
		shown = strings.TrimSpace(in.Sender.FirstName + " " + in.Sender.LastName)
	}
	account := strconv.FormatInt(in.Sender.ID, 10)

	text := a.render("bridge.cmd.getme.info", shown, account)
	if player, ok := a.b.Store().PlayerByAccount(account); ok {
		text += a.render("bridge.cmd.getme.bound", player)
	} else {
		text += a.render("bridge.cmd.getme.unbound")
	}
	a.reply(ctx, in, text)
}

// handleAt pushes an in-game mention. The confirmation reply is deleted
// shortly after so the group stays readable.
func (a *application) handleAt(ctx context.Context, in bridge.Incoming, args []string) {
	if len(args) == 0 {
		a.reply(ctx, in, a.render("bridge.cmd.at.usage"))
		return
	}
	account := strconv.FormatInt(in.Sender.ID, 10)
	if _, ok := a.b.Store().PlayerByAccount(account); !ok {
		a.reply(ctx, in, a.render("bridge.cmd.at.need_bind"))
		return
	}

	target := args[0]
	rest := strings.Join(args[1:], " ")
	if err := a.b.RelayAt(ctx, in, target, rest); err != nil {
		a.logger.Warn("mention relay failed", zap.Error(err))
		a.reply(ctx, in, a.render("bridge.cmd.error"))
		return
	}

	sent, err := a.tg.SendMessage(ctx, a.render("bridge.cmd.at.sent"), bridge.SendOptions{ReplyTo: in.MessageID})
	if err != nil {
		a.logger.Warn("mention confirmation failed", zap.Error(err))
		return
	}
	go func(id int64) {
		time.Sleep(5 * time.Second)
		dctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.tg.DeleteMessage(dctx, id); err != nil {
			a.logger.Debug("confirmation cleanup failed", zap.Error(err))
		}
	}(sent.ID)
}

func (a *application) reply(ctx context.Context, in bridge.Incoming, text string) {
	if text == "" {
		return
	}
	if _, err := a.tg.SendMessage(ctx, text, bridge.SendOptions{ReplyTo: in.MessageID, DisablePreview: true}); err != nil {
		a.logger.Warn("command reply failed", zap.Error(err))
	}
}

func (a *application) render(key string, args ...string) string {
	text, err := a.cat.Render(key, args...)
	if err != nil {
		a.logger.Error("command phrase missing from locale table", zap.String("key", key), zap.Error(err))
		return ""
	}
	return text
}

func (a *application) serverName() string {
	if a.cfg.Server.Name != "" {
		return a.cfg.Server.Name
	}
	return fmt.Sprintf("`%s`", a.cfg.Server.Host)
}
