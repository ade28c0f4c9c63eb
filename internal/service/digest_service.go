package service

import (
	"context"
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"taskwell/internal/model"
	"taskwell/internal/repository"
)

// DigestService builds human-readable summaries for daily notifications.
type DigestService struct {
	taskRepo *repository.TaskRepository
}

func NewDigestService(taskRepo *repository.TaskRepository) *DigestService {
	return &DigestService{taskRepo: taskRepo}
}

// DailySummary renders the pending work of user as Telegram HTML.
func (s *DigestService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	tasks, err := s.taskRepo.ListPendingByUser(ctx, user.ID)
	if err != nil {
		return "", err
	}

	var pending, recurring []model.Task
	for _, task := range tasks {
		if task.Recurring {
			recurring = append(recurring, task)
			continue
		}
		pending = append(pending, task)
	}

	loc := now.Location()
	sort.SliceStable(pending, func(i, j int) bool {
		di, okI := deadlineOf(pending[i], loc)
		dj, okJ := deadlineOf(pending[j], loc)
		switch {
		case !okI && !okJ:
			return pending[i].CreatedAt.After(pending[j].CreatedAt)
		case !okI:
			return false
		case !okJ:
			return true
		default:
			return di.Before(dj)
		}
	})
	sort.SliceStable(recurring, func(i, j int) bool {
		return recurring[i].ConsistencyScore < recurring[j].ConsistencyScore
	})

	var builder strings.Builder
	if name := strings.TrimSpace(user.Name); name != "" {
		builder.WriteString(fmt.Sprintf("📋 <b>Daily report for %s</b>\n", html.EscapeString(name)))
	} else {
		builder.WriteString("📋 <b>Daily report</b>\n")
	}
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("Mon, 02 Jan 2006")))

	builder.WriteString("🔥 <b>Open tasks</b>\n")
	if len(pending) == 0 {
		builder.WriteString("— nothing open\n")
	} else {
		for _, task := range pending {
			builder.WriteString(formatTask(task, now))
		}
	}

	builder.WriteString("\n♻️ <b>Recurring today</b>\n")
	if len(recurring) == 0 {
		builder.WriteString("— all done\n")
	} else {
		for _, task := range recurring {
			builder.WriteString(formatRecurring(task, now))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

func deadlineOf(task model.Task, loc *time.Location) (time.Time, bool) {
	if task.Deadline == nil {
		return time.Time{}, false
	}
	d, err := time.ParseInLocation(dateLayout, *task.Deadline, loc)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

func formatTask(task model.Task, now time.Time) string {
	var sb strings.Builder

	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	deadline, hasDeadline := deadlineOf(task, now.Location())

	icon := "🟢"
	if hasDeadline {
		switch {
		case deadline.Before(today):
			icon = "⚠️"
		case deadline.Sub(today) <= 48*time.Hour:
			icon = "⏳"
		}
	}

	sb.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(strings.TrimSpace(task.Title))))
	if category := strings.TrimSpace(task.Category); category != "" {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(category)))
	}
	if task.Priority == model.PriorityHigh {
		sb.WriteString(" ❗")
	}

	if hasDeadline {
		if deadline.Before(today) {
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s · <b>overdue</b>", *task.Deadline))
		} else {
			daysLeft := int(deadline.Sub(today).Hours() / 24)
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s · %s", *task.Deadline, daysLeftText(daysLeft)))
		}
	}

	sb.WriteByte('\n')
	return sb.String()
}

func formatRecurring(task model.Task, now time.Time) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("♻️ %s", html.EscapeString(strings.TrimSpace(task.Title))))
	if category := strings.TrimSpace(task.Category); category != "" {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(category)))
	}
	sb.WriteString(fmt.Sprintf("\n   📈 consistency %d/100", task.ConsistencyScore))
	if task.LastCompleted != nil {
		sb.WriteString(fmt.Sprintf(" · last done %s", task.LastCompleted.In(now.Location()).Format(dateLayout)))
	} else {
		sb.WriteString(" · not done yet")
	}

	sb.WriteByte('\n')
	return sb.String()
}

func daysLeftText(days int) string {
	switch days {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %d days", days)
	}
}
