package discord

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
)

// execute runs one chat command and returns the reply. Messages that are not
// commands get no reply.
func (b *Bot) execute(ctx context.Context, content string) (string, bool) {
	words := strings.Fields(content)
	if len(words) == 0 || !strings.HasPrefix(words[0], "!") {
		return "", false
	}

	switch words[0] {
	case "!start":
		return b.handleStartRequest(ctx, words[1:]), true
	case "!stop":
		return b.handleStopRequest(words[1:]), true
	case "!status":
		return b.handleStatusRequest(words[1:]), true
	case "!list":
		return b.handleListRequest(), true
	case "!help":
		return helpText, true
	default:
		return fmt.Sprintf("Unknown command: `%s`. Type `!help` for available commands.", words[0]), true
	}
}

func (b *Bot) supervisorExists(supervisor string) bool {
	return slices.Contains(b.manager.AvailableSupervisors(), supervisor)
}

func (b *Bot) isRunning(supervisor string) bool {
	return slices.Contains(b.manager.Running(), supervisor)
}

func (b *Bot) handleStartRequest(ctx context.Context, names []string) string {
	if len(names) == 0 {
		return "Usage: !start <supervisor1> [supervisor2] ..."
	}

	var lines []string
	for _, supervisor := range names {
		switch {
		case !b.supervisorExists(supervisor):
			lines = append(lines, fmt.Sprintf("Supervisor '%s' not found.", supervisor))
		case b.isRunning(supervisor):
			lines = append(lines, fmt.Sprintf("Supervisor '%s' is already running.", supervisor))
		default:
			if err := b.manager.Launch(ctx, supervisor); err != nil {
				lines = append(lines, fmt.Sprintf("Supervisor '%s' could not be started: %s", supervisor, err))
				continue
			}
			lines = append(lines, fmt.Sprintf("Supervisor '%s' has been started.", supervisor))
		}
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) handleStopRequest(names []string) string {
	if len(names) == 0 {
		return "Usage: !stop <supervisor1> [supervisor2] ..."
	}

	var lines []string
	for _, supervisor := range names {
		switch {
		case !b.supervisorExists(supervisor):
			lines = append(lines, fmt.Sprintf("Supervisor '%s' not found.", supervisor))
		case !b.isRunning(supervisor):
			lines = append(lines, fmt.Sprintf("Supervisor '%s' is not running.", supervisor))
		default:
			b.manager.Stop(supervisor)
			lines = append(lines, fmt.Sprintf("Supervisor '%s' is stopping.", supervisor))
		}
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) handleStatusRequest(names []string) string {
	if len(names) == 0 {
		return "Usage: !status <supervisor1> [supervisor2] ..."
	}

	var lines []string
	for _, supervisor := range names {
		if !b.supervisorExists(supervisor) {
			lines = append(lines, fmt.Sprintf("Supervisor '%s' not found.", supervisor))
			continue
		}
		if !b.isRunning(supervisor) {
			lines = append(lines, fmt.Sprintf("Supervisor '%s' is offline.", supervisor))
			continue
		}

		st := b.manager.Status(supervisor)
		line := fmt.Sprintf("Supervisor '%s' is %s (sessions: %d, routes completed: %d, aborted: %d, failed: %d)",
			supervisor, st.State, st.SessionsStarted, st.RoutesCompleted, st.RoutesAborted, st.RoutesFailed)
		if st.LastTermination != "" {
			line += fmt.Sprintf("\nLast termination: %s", st.LastTermination)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) handleListRequest() string {
	supervisors := b.manager.AvailableSupervisors()
	if len(supervisors) == 0 {
		return "No supervisors available."
	}

	var sb strings.Builder
	sb.WriteString("**Available supervisors**")
	for _, supervisor := range supervisors {
		if !b.isRunning(supervisor) {
			fmt.Fprintf(&sb, "\n%s: Offline", supervisor)
			continue
		}
		st := b.manager.Status(supervisor)
		fmt.Fprintf(&sb, "\n%s: %s, up %s", supervisor, st.State, formatUptime(time.Since(st.StartedAt)))
	}
	return sb.String()
}

func formatUptime(uptime time.Duration) string {
	switch {
	case uptime < time.Minute:
		return fmt.Sprintf("%ds", int(uptime.Seconds()))
	case uptime < time.Hour:
		return fmt.Sprintf("%dm", int(uptime.Minutes()))
	default:
		return fmt.Sprintf("%dh %dm", int(uptime.Hours()), int(uptime.Minutes())%60)
	}
}

const helpText = "**Commands**\n" +
	"`!list` all supervisors with their state\n" +
	"`!start <supervisor> ...` start supervisors\n" +
	"`!stop <supervisor> ...` stop supervisors\n" +
	"`!status <supervisor> ...` session and route counters\n" +
	"`!help` this message"
