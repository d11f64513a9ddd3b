package pipeline

import (
	"fmt"
	"strings"

	"github.com/poiesic/findorigin/core"
)

// User-facing notification texts.
const (
	MessageAck         = "✅ Сообщение получено. Начинаю поиск источников..."
	MessageSearching   = "🔍 Анализирую текст и ищу источники..."
	MessageComparing   = "🤖 Сравниваю найденные источники с исходным текстом..."
	MessageEmptyText   = "Пожалуйста, отправьте текст сообщения, для которого нужно найти источник."
	MessageNoProviders = "⚠️ Поиск источников временно недоступен: не настроен ни один поисковый сервис."
	MessageNoSources   = "❌ Источники не найдены. Попробуйте отправить более длинный фрагмент текста."
	MessageNoRelevant  = "🤷 Найденные источники не совпадают с текстом достаточно близко."
	MessageFailed      = "⚠️ Не удалось завершить поиск источников. Попробуйте позже."
	MessageForward     = "Для работы с сообщениями из каналов, пожалуйста, перешлите сообщение боту или скопируйте его текст."
	MessageHelp        = "Отправьте или перешлите мне текст сообщения, и я найду его вероятные первоисточники.\n\nЯ проанализирую утверждения, даты и имена, найду подходящие публикации и оценю, насколько каждая из них совпадает с текстом."

	resultHeader = "📚 Вероятные источники:"
	fallbackNote = "ℹ️ AI сравнение недоступно, источники показаны без оценки релевантности."
)

var confidenceLabels = map[core.Confidence]string{
	core.ConfidenceHigh:   "высокая",
	core.ConfidenceMedium: "средняя",
	core.ConfidenceLow:    "низкая",
}

// FormatReport renders the final notification for a run.
func FormatReport(report *Report) string {
	switch report.Outcome {
	case OutcomeEmptyText:
		return MessageEmptyText
	case OutcomeNoProviders:
		return MessageNoProviders
	case OutcomeNoSources:
		return MessageNoSources
	case OutcomeNoRelevant:
		return MessageNoRelevant
	case OutcomeFailed:
		return MessageFailed
	}
	return FormatComparisons(report.Comparisons, report.Outcome == OutcomeFallback)
}

// FormatComparisons renders a numbered list of sources with their scores.
func FormatComparisons(comparisons []*core.ComparisonResult, fallback bool) string {
	var b strings.Builder
	b.WriteString(resultHeader)
	for i, c := range comparisons {
		title := strings.TrimSpace(c.Source.Title)
		if title == "" {
			title = c.Source.URL
		}
		fmt.Fprintf(&b, "\n\n%d. %s\n🔗 %s", i+1, title, c.Source.URL)
		if fallback {
			continue
		}
		fmt.Fprintf(&b, "\n📊 Релевантность: %d%% (уверенность: %s)", c.RelevanceScore, confidenceLabel(c.Confidence))
		if c.Explanation != "" {
			fmt.Fprintf(&b, "\n💬 %s", c.Explanation)
		}
	}
	if fallback {
		b.WriteString("\n\n")
		b.WriteString(fallbackNote)
	}
	return b.String()
}

func confidenceLabel(c core.Confidence) string {
	if label, ok := confidenceLabels[c]; ok {
		return label
	}
	return string(c)
}
