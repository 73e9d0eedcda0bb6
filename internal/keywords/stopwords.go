package keywords

import "unicode/utf8"

// stopWords are dropped from extracted terms. Inside unspaced Chinese text
// they also act as word boundaries.
var stopWords = toSet([]string{
	// Chinese
	"的", "了", "在", "是", "我", "有", "和", "就", "不", "人", "都", "一",
	"一个", "上", "也", "很", "到", "说", "要", "去", "你", "会", "着", "没有",
	"看", "好", "自己", "这", "想", "找", "可以", "那个", "什么", "聊", "聊天",
	"想找", "一些", "个", "吗", "吧", "啊", "呢", "嘛",
	"还", "就是", "都是", "或者", "但是", "然后", "因为", "所以", "如果", "虽然",
	// English
	"the", "and", "or", "but", "so", "to", "of", "in", "on", "at", "for", "with",
	"is", "are", "am", "be", "an", "me", "my", "you", "your", "we", "it", "its",
	"this", "that", "want", "someone", "somebody", "chat", "talk", "looking",
})

// maxStopRunes is the rune length of the longest stop word.
var maxStopRunes = func() int {
	longest := 0
	for w := range stopWords {
		if n := utf8.RuneCountInString(w); n > longest {
			longest = n
		}
	}
	return longest
}()

// IsStopWord reports whether w is in the fixed stop-word set.
func IsStopWord(w string) bool {
	_, ok := stopWords[w]
	return ok
}
