package flow

import "fmt"

// PageSize 题号面板每组的按钮数
const PageSize = 25

// QuestionStatus 由题目和标记集合推导，不单独存储
type QuestionStatus struct {
	Answered bool
	Marked   bool
}

type ButtonState int

const (
	ButtonPlain ButtonState = iota
	ButtonAnswered
	ButtonMarked
	ButtonCurrent
)

func (b ButtonState) String() string {
	switch b {
	case ButtonCurrent:
		return "current"
	case ButtonMarked:
		return "marked"
	case ButtonAnswered:
		return "answered"
	default:
		return "plain"
	}
}

func Statuses(questions []Question, marked map[string]bool) []QuestionStatus {
	out := make([]QuestionStatus, len(questions))
	for i, q := range questions {
		out[i] = QuestionStatus{
			Answered: q.SelectedAnswer != Unanswered,
			Marked:   marked[q.ID],
		}
	}
	return out
}

// StateFor 优先级：当前 > 标记 > 已答 > 未答
func StateFor(index, current int, st QuestionStatus) ButtonState {
	switch {
	case index == current:
		return ButtonCurrent
	case st.Marked:
		return ButtonMarked
	case st.Answered:
		return ButtonAnswered
	default:
		return ButtonPlain
	}
}

func ButtonStates(statuses []QuestionStatus, current int) []ButtonState {
	out := make([]ButtonState, len(statuses))
	for i, st := range statuses {
		out[i] = StateFor(i, current, st)
	}
	return out
}

func PageOf(index int) int {
	if index < 0 {
		return 0
	}
	return index / PageSize
}

// Page 题号面板的一组，[Start, End)
type Page struct {
	Index int
	Start int
	End   int
}

func Pages(total int) []Page {
	var pages []Page
	for start := 0; start < total; start += PageSize {
		end := start + PageSize
		if end > total {
			end = total
		}
		pages = append(pages, Page{Index: len(pages), Start: start, End: end})
	}
	return pages
}

// Navigator 记录题号面板当前所在分组，分组变化时回调滚动
type Navigator struct {
	page     int
	onScroll func(page int)
}

func NewNavigator(onScroll func(page int)) *Navigator {
	return &Navigator{onScroll: onScroll}
}

// Follow 当前题目所在分组变化时返回 true 并触发滚动
func (n *Navigator) Follow(current int) bool {
	p := PageOf(current)
	if p == n.page {
		return false
	}
	n.page = p
	if n.onScroll != nil {
		n.onScroll(p)
	}
	return true
}

func (n *Navigator) Page() int {
	return n.page
}

type Meta struct {
	Total        int
	Attempted    int
	NotAttempted int
	Marked       int
}

func MetaOf(statuses []QuestionStatus) Meta {
	m := Meta{Total: len(statuses)}
	for _, st := range statuses {
		if st.Answered {
			m.Attempted++
		}
		if st.Marked {
			m.Marked++
		}
	}
	m.NotAttempted = m.Total - m.Attempted
	return m
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// SubmitWarning 交卷前的提醒文案，两项都为 0 时返回空串
func SubmitWarning(m Meta) string {
	var parts []string
	if m.NotAttempted > 0 {
		parts = append(parts, plural(m.NotAttempted, "question")+" unanswered")
	}
	if m.Marked > 0 {
		parts = append(parts, plural(m.Marked, "question")+" marked for review")
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return parts[0] + " and " + parts[1]
	}
}
