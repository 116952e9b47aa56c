package cli

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/alexanderramin/workledger/internal/domain"
)

// dateValue is a YYYY-MM-DD flag.
type dateValue struct{ s *string }

func (v dateValue) String() string { return *v.s }
func (v dateValue) Type() string   { return "date" }

func (v dateValue) Set(s string) error {
	if _, err := time.Parse(domain.DateLayout, s); err != nil {
		return fmt.Errorf("expected YYYY-MM-DD, got %q", s)
	}
	*v.s = s
	return nil
}

// clockValue is an HH:MM flag used for both clock times and durations.
type clockValue struct {
	s        *string
	duration bool
}

func (v clockValue) String() string { return *v.s }

func (v clockValue) Type() string {
	if v.duration {
		return "duration"
	}
	return "clock"
}

func (v clockValue) Set(s string) error {
	parse := domain.ParseClock
	if v.duration {
		parse = domain.ParseHHMM
	}
	m, err := parse(s)
	if err != nil {
		return fmt.Errorf("expected HH:MM, got %q", s)
	}
	if v.duration {
		*v.s = domain.FormatHHMM(m)
	} else {
		*v.s = domain.FormatClock(m)
	}
	return nil
}

// monthValue is a YYYY-MM flag.
type monthValue struct{ s *string }

func (v monthValue) String() string { return *v.s }
func (v monthValue) Type() string   { return "month" }

func (v monthValue) Set(s string) error {
	if _, err := time.Parse(domain.MonthKeyLayout, s); err != nil {
		return fmt.Errorf("expected YYYY-MM, got %q", s)
	}
	*v.s = s
	return nil
}

func dateFlag(fs *pflag.FlagSet, p *string, name, usage string) {
	fs.Var(dateValue{s: p}, name, usage)
}

func clockFlag(fs *pflag.FlagSet, p *string, name, usage string) {
	fs.Var(clockValue{s: p}, name, usage)
}

func durationFlag(fs *pflag.FlagSet, p *string, name, usage string) {
	fs.Var(clockValue{s: p, duration: true}, name, usage)
}

func monthFlag(fs *pflag.FlagSet, p *string, name, usage string) {
	fs.Var(monthValue{s: p}, name, usage)
}
