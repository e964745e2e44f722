package flow

// Static question and choice catalogs for the three flows. Flow engines
// treat everything here as immutable.

// Commands and input prefixes recognized by the flows.
const (
	MemoCommand   = "memo"
	Life5Command  = "/life5"
	ReviewCommand = "/review"
	HintCommand   = "ヒント"

	ThemePrefix   = "テーマ:"
	ClusterPrefix = "クラスタ:"
	PairPrefix    = "ペア:"
	CardPrefix    = "カード:"
)

// MemoModeMemo is the memo-category-entry selection at the memo menu; the
// other menu entries are offered but have no flow behind them yet.
const MemoModeMemo = "メモ"

// MemoModeOptions are the choices offered after the memo command.
var MemoModeOptions = []string{MemoModeMemo, "呼び出し", "タイマー"}

// MemoCategory describes one memo destination category. Exactly one
// category requires a subcategory selection before content input.
type MemoCategory struct {
	Name                string
	RequiresSubcategory bool
	Subcategories       []string
}

// MemoCategories is the fixed category catalog, in menu order.
var MemoCategories = []MemoCategory{
	{Name: "アイデア", RequiresSubcategory: true, Subcategories: []string{"仕事", "プライベート"}},
	{Name: "感情"},
	{Name: "気づき"},
	{Name: "後で調べる"},
	{Name: "タスク"},
	{Name: "買い物リスト"},
	{Name: "リンク"},
}

// MemoCategoryByName looks up a catalog category by its label.
func MemoCategoryByName(name string) (MemoCategory, bool) {
	for _, c := range MemoCategories {
		if c.Name == name {
			return c, true
		}
	}
	return MemoCategory{}, false
}

// ThemeLabels lists the three regret themes in menu order.
var ThemeLabels = []string{"健康", "挑戦経験", "人間関係"}

// ThemeQuestions maps each regret theme to its Q1 narrative prompt.
var ThemeQuestions = map[string]string{
	"健康":   "🩺【健康】このままいくと後悔しそうなことは？どんな人生になりますか？",
	"挑戦経験": "🚀【挑戦・経験】このままいくと後悔しそうなことは？どんな人生になりますか？",
	"人間関係": "🤝【人間関係】このままいくと後悔しそうなことは？どんな人生になりますか？",
}

// ClusterLabels lists the six value clusters in menu order.
var ClusterLabels = []string{"成長系", "関係性系", "挑戦系", "安定系", "内面系", "健康系"}

// Clusters maps each cluster label to its value list. Values are distinct
// across all clusters, so concatenating two clusters never duplicates.
var Clusters = map[string][]string{
	"成長系":  {"誠実さ", "学び", "創造性", "自己成長", "探究心", "向上心", "努力"},
	"関係性系": {"愛", "友情", "家族", "共感", "親切", "支援", "公平"},
	"挑戦系":  {"勇気", "冒険", "達成", "主体性", "リーダーシップ", "挑戦心"},
	"安定系":  {"安定", "安心", "規律", "責任", "持続性", "調和", "安全"},
	"内面系":  {"自律", "自由", "内省", "幸福", "感謝", "精神成長"},
	"健康系":  {"健康", "体力", "活力", "バランス", "長寿", "自己管理", "ウェルネス"},
}

// Tournament sizing for the life5 value ranking.
const (
	MaxPairwise      = 9
	RequiredClusters = 2
	CardSortSize     = 9
)

// Life5Questions holds the five sequential prompt slots. Slots 0 and 1 are
// consumed by the theme question and the card-sort reason; slots 2..4 are
// the remaining reflection prompts. The answer to slot n is persisted as
// Q{n+1}_Summary.
var Life5Questions = []string{
	"",
	"",
	"🌅【ビジョンスナップショット】未来の1シーンを30語以内で描写してください（誰と、どこで、何をして、どんな気持ち？）",
	"❓【Deep-Why】叶った時に満たされる感情 or 叶わなかった時に失うものを、感情で1行で教えてください。",
	"🎯【今日のミッション】2時間以内に、誰に対して、どんな貢献ができそうですか？",
}

// QuestionType classifies how a review question captures its answer.
type QuestionType string

// Review question types.
const (
	QuestionStar       QuestionType = "star"        // 1-5 star rating, button only
	QuestionStarReason QuestionType = "star_reason" // preset label or free text
	QuestionEmotion    QuestionType = "emotion"     // tag pick plus optional note
	QuestionText       QuestionType = "text"        // free text
)

// ReviewQuestion is one static entry of the review question sequence.
type ReviewQuestion struct {
	Key       string
	Type      QuestionType
	Label     string
	Choices   []string
	MaxLength int
}

// AllowsAudio reports whether transcribed voice input is accepted for this
// question. Star ratings are button-only.
func (q ReviewQuestion) AllowsAudio() bool {
	return q.Type != QuestionStar
}

// SkipLabel skips the optional emotion note.
const SkipLabel = "スキップ"

// ReviewQuestions is the fixed 11-question review sequence.
var ReviewQuestions = []ReviewQuestion{
	{
		Key:   "ValueStar",
		Type:  QuestionStar,
		Label: "Value★ の整合度を 1〜5 の★で教えてください",
	},
	{
		Key:       "ValueReason",
		Type:      QuestionStarReason,
		Label:     "★を{N}にした理由を教えて！",
		Choices:   []string{"時間が足りなかった", "集中できた", "タスクが多過ぎた", "途中で中断した", "自信があった"},
		MaxLength: 100,
	},
	{
		Key:   "MissionStar",
		Type:  QuestionStar,
		Label: "Mission★ の達成度を 1〜5 の★で教えてください",
	},
	{
		Key:       "MissionReason",
		Type:      QuestionStarReason,
		Label:     "★を{N}にした理由を教えて！",
		Choices:   []string{"計画通り進めた", "思ったより難しかった", "時間が足りなかった", "集中できた", "モチベが高かった"},
		MaxLength: 100,
	},
	{
		Key:       "Win",
		Type:      QuestionText,
		Label:     "今日うまくいった行動は？",
		MaxLength: 100,
	},
	{
		Key:       "IfThen",
		Type:      QuestionText,
		Label:     "次はどう改善・自動化する？if-then 形式で 1 行で",
		MaxLength: 100,
	},
	{
		Key:       "Pride",
		Type:      QuestionText,
		Label:     "誇りを感じた瞬間は？",
		MaxLength: 100,
	},
	{
		Key:       "Gratitude",
		Type:      QuestionText,
		Label:     "感謝した／されたことは？",
		MaxLength: 100,
	},
	{
		Key:       "EmotionTag",
		Type:      QuestionEmotion,
		Label:     "最も強かった感情は？",
		Choices:   []string{"喜び", "怒り", "悲しみ", "驚き", "不安"},
		MaxLength: 100,
	},
	{
		Key:       "Insight",
		Type:      QuestionText,
		Label:     "今日得た気づき・学びは？",
		MaxLength: 100,
	},
	{
		Key:       "Tomorrow",
		Type:      QuestionText,
		Label:     "明日の MIT を一言で？",
		MaxLength: 50,
	},
}
