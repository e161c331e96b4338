package textproc

// stoplist is a fixed stopword set; unlike the corpus-level term statistics
// the classifier keeps, this list never changes at runtime.
type stoplist struct {
	stops map[string]struct{}
}

func newStoplist(words []string) *stoplist {
	stops := make(map[string]struct{}, len(words))
	for _, w := range words {
		stops[w] = struct{}{}
	}
	return &stoplist{stops: stops}
}

func (s *stoplist) IsStop(token string) bool {
	_, ok := s.stops[token]
	return ok
}

var englishStopwords = []string{
	"a", "about", "above", "after", "again", "against", "all", "am", "an",
	"and", "any", "are", "aren", "as", "at", "be", "because", "been",
	"before", "being", "below", "between", "both", "but", "by", "can",
	"cannot", "could", "did", "do", "does", "doing", "down", "during",
	"each", "few", "for", "from", "further", "had", "has", "have", "having",
	"he", "her", "here", "hers", "herself", "him", "himself", "his", "how",
	"i", "if", "in", "into", "is", "isn", "it", "its", "itself", "just",
	"me", "more", "most", "my", "myself", "no", "nor", "not", "now", "of",
	"off", "on", "once", "only", "or", "other", "our", "ours", "ourselves",
	"out", "over", "own", "s", "same", "she", "should", "so", "some", "such",
	"t", "than", "that", "the", "their", "theirs", "them", "themselves",
	"then", "there", "these", "they", "this", "those", "through", "to",
	"too", "under", "until", "up", "very", "was", "we", "were", "what",
	"when", "where", "which", "while", "who", "whom", "why", "will", "with",
	"would", "you", "your", "yours", "yourself", "yourselves",
}

var chineseStopwords = []string{
	"的", "了", "和", "是", "在", "我", "有", "就", "不", "人", "都", "一",
	"一个", "上", "也", "很", "到", "说", "要", "去", "你", "会", "着",
	"没有", "看", "好", "自己", "这", "那", "他", "她", "它", "们", "与",
	"及", "或", "等", "对", "为", "以", "被", "把", "从", "向", "于", "而",
	"并", "但", "其", "之", "中", "下", "个", "各", "该", "此", "些",
}
