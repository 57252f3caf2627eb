package export

import (
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"

	"github.com/grantgenius/grantgenius-backend/internal/pkg/apperror"
)

// Format формат выгрузки заявки.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// ParseFormat разбирает query параметр format; пустое значение означает markdown.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	default:
		return "", apperror.Validation(apperror.FieldError{Field: "format", Message: "допустимые значения: markdown, text"})
	}
}

// Document готовый к отдаче файл.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

var (
	htmlTagRe      = regexp.MustCompile(`(?i)<(p|div|h[1-6]|ul|ol|li|br|strong|em|b|i|span|blockquote|table)\b[^>]*>`)
	excessiveLines = regexp.MustCompile(`\n{3,}`)
	mdHeadingRe    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdEscapeRe     = regexp.MustCompile(`\\([\\` + "`" + `*_{}\[\]()#+\-.!|<>~])`)
	mdLinkRe       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	mdListBulletRe = regexp.MustCompile(`(?m)^(\s*)[-*+]\s+`)
	filenameUnsafe = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

// mdEmphasisRes снимают выделение только на границах слов: snake_case и
// одиночные звёздочки в тексте не трогаются, экранированные маркеры тоже.
var mdEmphasisRes = []*regexp.Regexp{
	emphasisRe(`\*\*`),
	emphasisRe(`__`),
	emphasisRe(`\*`),
	emphasisRe(`_`),
}

func emphasisRe(marker string) *regexp.Regexp {
	return regexp.MustCompile(`(^|[^\p{L}\p{N}*_\\])` + marker + `([^*_\s\\](?:[^*_\n\\]*[^*_\s\\])?)` + marker + `($|[^\p{L}\p{N}*_])`)
}

// IsHTML грубо определяет, что содержимое пришло из rich-text редактора.
func IsHTML(content string) bool {
	return htmlTagRe.MatchString(content)
}

// ToMarkdown переводит HTML редактора в markdown; обычный текст возвращается как есть.
func ToMarkdown(content string) (string, error) {
	if !IsHTML(content) {
		return strings.TrimSpace(content), nil
	}

	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	markdown, err := converter.ConvertString(content)
	if err != nil {
		return "", fmt.Errorf("export: не удалось преобразовать HTML: %w", err)
	}
	return strings.TrimSpace(excessiveLines.ReplaceAllString(markdown, "\n\n")), nil
}

// ToText убирает markdown разметку и экранирование, оставляя литеральные символы.
func ToText(markdown string) string {
	text := mdHeadingRe.ReplaceAllString(markdown, "")
	text = mdLinkRe.ReplaceAllString(text, "$1 ($2)")
	for _, re := range mdEmphasisRes {
		// Соседние выделения делят символ-границу, поэтому повторяем до неподвижной точки.
		for {
			next := re.ReplaceAllString(text, "${1}${2}${3}")
			if next == text {
				break
			}
			text = next
		}
	}
	text = mdListBulletRe.ReplaceAllString(text, "$1- ")
	text = mdEscapeRe.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}

// Render собирает файл выгрузки.
func Render(title, content string, format Format) (*Document, error) {
	markdown, err := ToMarkdown(content)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось подготовить выгрузку")
	}

	base := Filename(title)
	switch format {
	case FormatText:
		body := title + "\n\n" + ToText(markdown) + "\n"
		return &Document{Filename: base + ".txt", ContentType: "text/plain; charset=utf-8", Body: []byte(body)}, nil
	default:
		body := "# " + title + "\n\n" + markdown + "\n"
		return &Document{Filename: base + ".md", ContentType: "text/markdown; charset=utf-8", Body: []byte(body)}, nil
	}
}

// Filename безопасное имя файла из заголовка.
func Filename(title string) string {
	name := strings.Trim(filenameUnsafe.ReplaceAllString(strings.TrimSpace(title), "-"), "-")
	if name == "" {
		return "proposal"
	}
	if r := []rune(name); len(r) > 80 {
		name = strings.TrimRight(string(r[:80]), "-")
	}
	return name
}
