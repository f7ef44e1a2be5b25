package auth

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// AllowList decides which Google accounts may sign in. Implementations are
// supplied at startup and may change their contents while the process runs.
type AllowList interface {
	Allowed(ctx context.Context, email string) (bool, error)
}

type emailSet map[string]struct{}

func newEmailSet(emails []string) emailSet {
	set := make(emailSet, len(emails))
	for _, e := range emails {
		if e = normalizeEmail(e); e != "" {
			set[e] = struct{}{}
		}
	}
	return set
}

func (s emailSet) has(email string) bool {
	_, ok := s[normalizeEmail(email)]
	return ok
}

// StaticAllowList admits a fixed set of emails. An empty list admits nobody.
type StaticAllowList struct {
	emails emailSet
}

func NewStaticAllowList(emails []string) *StaticAllowList {
	return &StaticAllowList{emails: newEmailSet(emails)}
}

func (l *StaticAllowList) Allowed(_ context.Context, email string) (bool, error) {
	return l.emails.has(email), nil
}

// allowListFile is the YAML document read by FileAllowList.
type allowListFile struct {
	Emails []string `yaml:"emails"`
}

// FileAllowList serves emails from a YAML file and re-reads it on Run's
// interval. A failed reload keeps the previous contents.
type FileAllowList struct {
	path     string
	interval time.Duration
	logger   *slog.Logger
	current  atomic.Pointer[emailSet]
}

// NewFileAllowList loads path once and returns an error if it cannot be parsed.
func NewFileAllowList(path string, interval time.Duration, logger *slog.Logger) (*FileAllowList, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &FileAllowList{path: path, interval: interval, logger: logger}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload re-reads the file and swaps in the new set.
func (l *FileAllowList) Reload() error {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("auth: read allow-list %s: %w", l.path, err)
	}
	var doc allowListFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("auth: parse allow-list %s: %w", l.path, err)
	}
	set := newEmailSet(doc.Emails)
	l.current.Store(&set)
	return nil
}

func (l *FileAllowList) Allowed(_ context.Context, email string) (bool, error) {
	set := l.current.Load()
	if set == nil {
		return false, nil
	}
	return set.has(email), nil
}

// Len reports how many emails are currently admitted.
func (l *FileAllowList) Len() int {
	if set := l.current.Load(); set != nil {
		return len(*set)
	}
	return 0
}

// Run reloads the file until ctx is cancelled.
func (l *FileAllowList) Run(ctx context.Context) error {
	if l.interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := l.Reload(); err != nil {
				l.logger.WarnContext(ctx, "allow-list reload failed",
					"module", "auth.allowlist",
					"operation", "reload",
					"outcome", "failure",
					"path", l.path,
					"error", err,
				)
				continue
			}
			l.logger.DebugContext(ctx, "allow-list reloaded",
				"module", "auth.allowlist",
				"operation", "reload",
				"outcome", "success",
				"emails", l.Len(),
			)
		}
	}
}

// RedisAllowList checks membership in a Redis set on every call, so edits
// to the set take effect immediately.
type RedisAllowList struct {
	client redis.Cmdable
	key    string
}

func NewRedisAllowList(client redis.Cmdable, key string) *RedisAllowList {
	return &RedisAllowList{client: client, key: key}
}

func (l *RedisAllowList) Allowed(ctx context.Context, email string) (bool, error) {
	ok, err := l.client.SIsMember(ctx, l.key, normalizeEmail(email)).Result()
	if err != nil {
		return false, fmt.Errorf("auth: redis allow-list: %w", err)
	}
	return ok, nil
}

// AnyAllowList admits an email when any member list admits it.
type AnyAllowList []AllowList

func (a AnyAllowList) Allowed(ctx context.Context, email string) (bool, error) {
	for _, l := range a {
		ok, err := l.Allowed(ctx, email)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
