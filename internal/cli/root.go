package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/shanky101/habit-tracker-mobile-sub000/internal/app"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/config"
	"github.com/shanky101/habit-tracker-mobile-sub000/internal/constants"
)

type Context struct {
	Config  *config.Config
	Service *app.Service
	// Clock is replaced in tests.
	Clock func() time.Time
}

func (c *Context) Now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

func (c *Context) Today() string {
	return c.Now().Format(constants.DateFormat)
}

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	HeadStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
)

func OK(format string, args ...any) {
	fmt.Println(okStyle.Render("✓") + " " + fmt.Sprintf(format, args...))
}

func Warn(format string, args ...any) {
	fmt.Println(warnStyle.Render("⚠") + " " + fmt.Sprintf(format, args...))
}

func Fail(format string, args ...any) {
	fmt.Println(failStyle.Render("❌") + " " + fmt.Sprintf(format, args...))
}

func Muted(s string) string { return mutedStyle.Render(s) }

// ParseWeekdays parses a comma-separated list of weekdays into 0 (Sunday) to 6.
// The empty string selects every day.
func ParseWeekdays(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return []int{0, 1, 2, 3, 4, 5, 6}, nil
	}

	dayMap := map[string]time.Weekday{
		"sun":       time.Sunday,
		"sunday":    time.Sunday,
		"mon":       time.Monday,
		"monday":    time.Monday,
		"tue":       time.Tuesday,
		"tuesday":   time.Tuesday,
		"wed":       time.Wednesday,
		"wednesday": time.Wednesday,
		"thu":       time.Thursday,
		"thursday":  time.Thursday,
		"fri":       time.Friday,
		"friday":    time.Friday,
		"sat":       time.Saturday,
		"saturday":  time.Saturday,
	}

	seen := make(map[int]bool)
	var days []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		d := -1
		if wd, ok := dayMap[part]; ok {
			d = int(wd)
		} else if num, err := strconv.Atoi(part); err == nil && num >= 0 && num <= 6 {
			d = num
		}
		if d < 0 {
			return nil, fmt.Errorf("invalid weekday: %s", part)
		}
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	return days, nil
}

// FormatWeekdays is the inverse of ParseWeekdays for display.
func FormatWeekdays(days []int) string {
	if len(days) == 7 {
		return "every day"
	}
	names := make([]string, 0, len(days))
	for _, d := range days {
		names = append(names, time.Weekday(d).String()[:3])
	}
	return strings.Join(names, ",")
}

func FormatSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}
