package router

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"runtime"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	rtsup "vaultbot/internal/runtime/supervisor"
	kit "vaultbot/internal/transport"
	logx "vaultbot/pkg/logx"
)

const (
	msgUnknown      = "unknown command, try /help"
	msgUnauthorized = "unauthorized"
	msgBusy         = "busy, try again"
)

// Router maps command names to handlers. Registry and owner list can be
// swapped while DispatchLoop runs.
type Router struct {
	log     logx.Logger
	adapter kit.Adapter

	mu     sync.RWMutex
	cmds   map[string]*Command // name and aliases
	order  []*Command
	owners []int64

	jobs chan func()

	runMu sync.Mutex
	sup   *rtsup.Supervisor
}

func New(log logx.Logger, adapter kit.Adapter, owners []int64) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{
		log:     log,
		adapter: adapter,
		cmds:    map[string]*Command{},
		owners:  slices.Clone(owners),
		jobs:    make(chan func(), 64),
	}
}

// SetOwners updates the list used for AccessOwnerOnly checks.
// An empty list lets everyone through.
func (m *Router) SetOwners(owners []int64) {
	m.mu.Lock()
	m.owners = slices.Clone(owners)
	m.mu.Unlock()
}

// SetRegistry replaces every command. A help command is always added.
func (m *Router) SetRegistry(cmds []Command) {
	cmds = append(slices.Clone(cmds), Command{
		Name:        "help",
		Aliases:     []string{"h"},
		Description: "list commands",
		Handle: func(ctx context.Context, req *Request) error {
			return req.Reply(ctx, m.helpText())
		},
	})

	byName := map[string]*Command{}
	order := make([]*Command, 0, len(cmds))
	for i := range cmds {
		c := &cmds[i]
		name := sanitizeCommand(c.Name)
		if name == "" || c.Handle == nil {
			continue
		}
		if _, dup := byName[name]; dup {
			m.log.Warn("duplicate command ignored", logx.String("cmd", name))
			continue
		}
		c.Name = name
		byName[name] = c
		order = append(order, c)
		for _, a := range c.Aliases {
			if a = sanitizeCommand(a); a != "" {
				if _, taken := byName[a]; !taken {
					byName[a] = c
				}
			}
		}
	}

	m.mu.Lock()
	m.cmds, m.order = byName, order
	m.mu.Unlock()
}

// PublishMenu pushes the registry to the chat client's command menu when
// the adapter supports it.
func (m *Router) PublishMenu(ctx context.Context) error {
	up, ok := m.adapter.(kit.CommandMenuUpdater)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return up.UpdateMenuCommands(ctx, m.menu())
}

func (m *Router) menu() []kit.BotCommand {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]kit.BotCommand, 0, len(m.order))
	for _, c := range m.order {
		desc := strings.TrimSpace(strings.ReplaceAll(c.Description, "\n", " "))
		if desc == "" {
			desc = c.Name
		}
		if c.Access == AccessOwnerOnly && len(m.owners) > 0 {
			desc = "🔒 " + desc
		}
		if len(desc) > 256 {
			desc = desc[:256]
		}
		out = append(out, kit.BotCommand{Command: c.Name, Description: desc})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Command < out[j].Command })
	return out
}

func (m *Router) helpText() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, c := range m.order {
		usage := c.Usage
		if usage == "" {
			usage = "/" + c.Name
		}
		fmt.Fprintf(&b, "%s - %s\n", usage, c.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Supervisor returns the worker pool supervisor, nil when not running.
func (m *Router) Supervisor() *rtsup.Supervisor {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	return m.sup
}

// DispatchLoop consumes updates until ctx ends or updates is closed.
func (m *Router) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	workers := min(max(runtime.NumCPU(), 2), 4)
	sup := rtsup.NewSupervisor(ctx,
		rtsup.WithLogger(m.log.With(logx.String("comp", "telegram.router"))),
		rtsup.WithCancelOnError(false),
	)
	m.runMu.Lock()
	m.sup = sup
	m.runMu.Unlock()

	jobs := m.jobs
	for i := range workers {
		sup.GoRestart(fmt.Sprintf("command.worker.%d", i), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case job := <-jobs:
					job()
				}
			}
		}, rtsup.WithRestartBackoff(200*time.Millisecond, 5*time.Second))
	}
	m.log.Info("command dispatcher started", logx.Int("workers", workers))

	defer func() {
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Stop(wctx)
		cancel()
		m.runMu.Lock()
		m.sup = nil
		m.runMu.Unlock()
		m.log.Info("command dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			m.route(ctx, up)
		}
	}
}

func (m *Router) route(ctx context.Context, up kit.Update) {
	msg := up.Message
	if msg == nil {
		return
	}
	name, args, ok := parseCommand(msg.Text)
	if !ok {
		return
	}
	to := kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}

	m.mu.RLock()
	cmd, found := m.cmds[name]
	owners := m.owners
	m.mu.RUnlock()
	if !found {
		if !msg.IsGroup {
			_, _ = m.adapter.SendText(ctx, to, msgUnknown, nil)
		}
		return
	}
	if cmd.Access == AccessOwnerOnly && len(owners) > 0 && !slices.Contains(owners, msg.FromID) {
		m.log.Debug("unauthorized command", logx.String("cmd", cmd.Name), logx.Int64("from_id", msg.FromID))
		_, _ = m.adapter.SendText(ctx, to, msgUnauthorized, nil)
		return
	}

	rid := newReqID()
	req := &Request{
		Message: msg,
		Chat:    to,
		FromID:  msg.FromID,
		Command: cmd.Name,
		Args:    args,
		ReqID:   rid,
		Adapter: m.adapter,
		Logger: m.log.With(
			logx.String("rid", rid),
			logx.Int64("chat_id", msg.ChatID),
			logx.Int64("from_id", msg.FromID),
			logx.String("cmd", cmd.Name),
		),
	}
	final := Chain(cmd.Handle, MWPanicRecover(m.log), MWRequestLog(m.log), MWTimeout(cmd.Timeout))

	select {
	case m.jobs <- func() { _ = final(ctx, req) }:
	default:
		_, _ = m.adapter.SendText(ctx, to, msgBusy, nil)
	}
}

// parseCommand splits "/cmd@bot a b" into ("cmd", ["a","b"]).
func parseCommand(text string) (string, []string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}
	word := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(word, '@'); i >= 0 {
		word = word[:i]
	}
	word = strings.ToLower(word)
	if word == "" {
		return "", nil, false
	}
	return word, fields[1:], true
}

func newReqID() string {
	var b [6]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
