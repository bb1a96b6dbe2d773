package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"quickchat/internal/chat"
	"quickchat/internal/config"
	"quickchat/internal/logger"
	"quickchat/internal/models"
	"quickchat/internal/transport"
)

var (
	_ chat.API    = (*transport.Client)(nil)
	_ chat.Events = (*transport.Socket)(nil)
)

type terminalNotifier struct {
	out io.Writer
}

func (n terminalNotifier) Notify(message string) {
	fmt.Fprintf(n.out, "! %s\n", message)
}

// printer writes only the part of each frame the terminal has not shown yet
type printer struct {
	mu      sync.Mutex
	out     io.Writer
	self    string
	peer    string
	printed []models.Message
}

func (p *printer) render(f chat.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if f.Selected == nil {
		p.peer, p.printed = "", nil
		return
	}

	start := len(p.printed)
	if f.Selected.ID != p.peer || len(f.Messages) < start || !samePrefix(p.printed, f.Messages) {
		status := "offline"
		if f.Online {
			status = "online"
		}
		fmt.Fprintf(p.out, "--- %s (%s) ---\n", f.Selected.FullName, status)
		start = 0
	}

	for _, m := range f.Messages[start:] {
		who := f.Selected.FullName
		if m.SenderID == p.self {
			who = "you"
		}
		body := m.Text
		if m.Image != "" {
			body = "[image] " + m.Image
		}
		fmt.Fprintf(p.out, "[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04"), who, body)
	}

	p.peer = f.Selected.ID
	p.printed = f.Messages
}

func samePrefix(a, b []models.Message) bool {
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

func main() {
	config.Load()
	cfg := config.LoadClient()

	flag.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "chat server root URL")
	flag.StringVar(&cfg.Email, "email", cfg.Email, "account email")
	flag.StringVar(&cfg.Password, "password", cfg.Password, "account password")
	flag.Parse()

	log := logger.New(cfg.LogLevel, true)

	if cfg.Email == "" || cfg.Password == "" {
		log.Fatal().Msg("CHAT_EMAIL and CHAT_PASSWORD (or -email/-password) are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := transport.NewClient(cfg.ServerURL, cfg.RequestTimeout)
	self, err := api.Login(ctx, cfg.Email, cfg.Password)
	if err != nil {
		log.Fatal().Err(err).Msg("Login failed")
	}

	socket := transport.NewSocket(log)
	if err := socket.Connect(ctx, api.BaseURL(), api.Token()); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to event stream")
	}
	defer socket.Close()

	ctrl := chat.NewController(api, socket, terminalNotifier{out: os.Stderr}, log)
	if err := ctrl.Init(ctx, *self); err != nil {
		log.Fatal().Err(err).Msg("Failed to start session")
	}
	defer ctrl.Teardown()

	p := &printer{out: os.Stdout, self: self.ID}
	ctrl.View().OnRender(p.render)

	fmt.Printf("Logged in as %s. Commands: /users, /open <n>, /close, /img <path>, /quit\n", self.FullName)
	printUsers(ctrl)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-socket.Done():
			log.Warn().Msg("Connection to server closed")
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := handleLine(ctx, ctrl, line); quit {
				return
			}
		}
	}
}

func handleLine(ctx context.Context, ctrl *chat.Controller, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit":
		return true
	case "/users":
		if err := ctrl.Refresh(ctx); err == nil {
			printUsers(ctrl)
		}
	case "/open":
		users := ctrl.Store().Users()
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(users) {
			fmt.Fprintln(os.Stderr, "! usage: /open <number from /users>")
			return false
		}
		_ = ctrl.Select(&users[n-1])
	case "/close":
		_ = ctrl.Select(nil)
	case "/img":
		data, err := os.ReadFile(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "! %v\n", err)
			return false
		}
		_ = ctrl.View().SendImage(ctx, data, "")
	default:
		_ = ctrl.View().SendText(ctx, line)
	}
	return false
}

func printUsers(ctrl *chat.Controller) {
	store := ctrl.Store()
	session := ctrl.Session()
	for i, u := range store.Users() {
		mark := " "
		if session.IsOnline(u.ID) {
			mark = "*"
		}
		line := fmt.Sprintf("%2d %s %s", i+1, mark, u.FullName)
		if n := store.Unseen(u.ID); n > 0 {
			line += fmt.Sprintf(" (%d)", n)
		}
		fmt.Println(line)
	}
}
