package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"

	"github.com/luoxu/craft-telegram-bridge/internal/bridge"
)

// Client wraps the Telegram Bot API for one bridged group chat. It sends
// bridge-formatted Markdown, resolves accounts and file paths, and feeds
// inbound group messages to a handler via long polling.
type Client struct {
	bot    *telego.Bot
	chatID int64
	logger *zap.Logger
}

// New dials the Bot API. proxyURL overrides the environment proxy when
// set; an empty value falls back to HTTP(S)_PROXY.
func New(token string, chatID int64, proxyURL string, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts []telego.BotOption
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", proxyURL, err)
		}
		opts = append(opts, telego.WithHTTPClient(&http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(parsed)},
		}))
	} else if os.Getenv("HTTP_PROXY") != "" || os.Getenv("HTTPS_PROXY") != "" {
		opts = append(opts, telego.WithHTTPClient(&http.Client{
			Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
		}))
	}

	bot, err := telego.NewBot(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Client{bot: bot, chatID: chatID, logger: logger}, nil
}

// Username is the bot's own handle, used to strip "@bot" command
// suffixes addressed to it.
func (c *Client) Username() string {
	return c.bot.Username()
}

func (c *Client) SendMessage(ctx context.Context, text string, opts bridge.SendOptions) (bridge.Sent, error) {
	params := &telego.SendMessageParams{
		ChatID:    tu.ID(c.chatID),
		Text:      text,
		ParseMode: telego.ModeMarkdown,
	}
	if opts.DisablePreview {
		params.LinkPreviewOptions = &telego.LinkPreviewOptions{IsDisabled: true}
	}
	if opts.ReplyTo != 0 {
		params.ReplyParameters = &telego.ReplyParameters{MessageID: int(opts.ReplyTo)}
	}

	msg, err := c.bot.SendMessage(ctx, params)
	if err != nil {
		return bridge.Sent{}, fmt.Errorf("send telegram message: %w", err)
	}
	return bridge.Sent{
		ID:    int64(msg.MessageID),
		Reply: replyInfo(msg.ReplyToMessage),
	}, nil
}

func (c *Client) GetUser(ctx context.Context, id int64) (bridge.User, error) {
	chat, err := c.bot.GetChat(ctx, &telego.GetChatParams{ChatID: tu.ID(id)})
	if err != nil {
		return bridge.User{}, fmt.Errorf("get telegram user %d: %w", id, err)
	}
	return bridge.User{
		ID:        chat.ID,
		FirstName: chat.FirstName,
		LastName:  chat.LastName,
		Username:  chat.Username,
	}, nil
}

func (c *Client) FilePath(ctx context.Context, fileID string) (string, error) {
	file, err := c.bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("get telegram file: %w", err)
	}
	return file.FilePath, nil
}

func (c *Client) DeleteMessage(ctx context.Context, messageID int64) error {
	return c.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
		ChatID:    tu.ID(c.chatID),
		MessageID: int(messageID),
	})
}

// SetCommands publishes the command menu shown by the Telegram client.
func (c *Client) SetCommands(ctx context.Context) error {
	return c.bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{
		Commands: []telego.BotCommand{
			{Command: "help", Description: "帮助菜单"},
			{Command: "status", Description: "获取服务器状态"},
			{Command: "performance", Description: "获取服务器性能信息"},
			{Command: "list", Description: "获取服务器上的玩家列表"},
			{Command: "bind", Description: "绑定你的 MC 用户名"},
			{Command: "unbind", Description: "解绑你的 MC 用户名"},
			{Command: "get_me", Description: "获取你的信息"},
			{Command: "at", Description: "在服务器里 @ 一个人"},
		},
	})
}

// Handler receives every message from the bridged chat, already
// normalized. Blocking work inside the handler delays polling; spawn
// where needed.
type Handler func(ctx context.Context, in bridge.Incoming)

// Listen long-polls updates until ctx is cancelled. Messages from chats
// other than the configured one are dropped.
func (c *Client) Listen(ctx context.Context, h Handler) error {
	updates, err := c.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{Timeout: 30})
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	bh, err := telegohandler.NewBotHandler(c.bot, updates)
	if err != nil {
		return fmt.Errorf("create bot handler: %w", err)
	}

	bh.HandleMessage(func(hctx *telegohandler.Context, message telego.Message) error {
		if message.Chat.ID != c.chatID {
			c.logger.Debug("message from unbridged chat dropped", zap.Int64("chat", message.Chat.ID))
			return nil
		}
		if message.From == nil {
			return nil
		}
		h(hctx, Normalize(&message))
		return nil
	}, telegohandler.Or(
		telegohandler.AnyMessageWithText(),
		telegohandler.AnyMessageWithCaption(),
		telegohandler.AnyMessageWithMedia(),
	))

	c.logger.Info("telegram bot connected", zap.String("username", c.bot.Username()))

	go func() {
		<-ctx.Done()
		bh.Stop()
	}()
	return bh.Start()
}
