// Package almanac provides the per-date holiday and trivia line appended
// to the morning digest. The table is static and keyed by "MM-DD"; a
// date with no entry just omits the section.
package almanac

// Entry is one day's supplementary line.
type Entry struct {
	Holiday string // national holiday name, empty if none
	Trivia  string // a short "today is ..." fact
}

var entries = map[string]Entry{
	"01-01": {Holiday: "元日", Trivia: "一年の計は元旦にあり、と言われる日です。"},
	"02-03": {Trivia: "節分。豆まきで邪気を払う日です。"},
	"02-11": {Holiday: "建国記念の日"},
	"02-22": {Trivia: "猫の日（にゃんにゃんにゃん）です。"},
	"03-03": {Trivia: "ひな祭り。桃の節句です。"},
	"03-14": {Trivia: "ホワイトデー、そして円周率の日です。"},
	"04-01": {Trivia: "エイプリルフール。新年度の始まりでもあります。"},
	"04-29": {Holiday: "昭和の日"},
	"05-03": {Holiday: "憲法記念日"},
	"05-04": {Holiday: "みどりの日"},
	"05-05": {Holiday: "こどもの日", Trivia: "端午の節句。柏餅の日です。"},
	"07-07": {Trivia: "七夕。短冊に願いごとを書く日です。"},
	"08-11": {Holiday: "山の日"},
	"10-01": {Trivia: "コーヒーの日です。"},
	"10-31": {Trivia: "ハロウィンです。"},
	"11-03": {Holiday: "文化の日"},
	"11-11": {Trivia: "ポッキー＆プリッツの日です。"},
	"11-23": {Holiday: "勤労感謝の日"},
	"12-25": {Trivia: "クリスマス。一年もあとわずかです。"},
	"12-31": {Trivia: "大晦日。よいお年を！"},
}

// Lookup returns the entry for a "YYYY-MM-DD" or "MM-DD" date string.
func Lookup(date string) (Entry, bool) {
	key := date
	if len(date) == len("2006-01-02") {
		key = date[5:]
	}
	e, ok := entries[key]
	return e, ok
}
