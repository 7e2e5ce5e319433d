package aggregation

import (
	"fmt"
	"sort"
	"time"

	"github.com/language-gems/analytics-service/internal/models"
)

type VocabularySource string

const (
	SourceAll         VocabularySource = "all"
	SourceGems        VocabularySource = "gems"
	SourceAssignments VocabularySource = "assignments"
)

type Section string

const (
	SectionStats    Section = "stats"
	SectionStudents Section = "students"
	SectionTrends   Section = "trends"
	SectionTopics   Section = "topics"
	SectionWords    Section = "words"
)

// AllSections lists every section in response order.
var AllSections = []Section{SectionStats, SectionStudents, SectionTrends, SectionTopics, SectionWords}

// SectionSet selects which vocabulary sections are computed. An empty set
// means all of them.
type SectionSet map[Section]bool

func (s SectionSet) Has(section Section) bool {
	return len(s) == 0 || s[section]
}

type Proficiency string

const (
	ProficiencyStruggling Proficiency = "struggling"
	ProficiencyLearning   Proficiency = "learning"
	ProficiencyProficient Proficiency = "proficient"
)

const (
	strugglingAccuracy   = 60.0
	strugglingEncounters = 3
	proficientAccuracy   = 90.0
	proficientEncounters = 5

	weakTopicAccuracy   = 60.0
	strongTopicAccuracy = 80.0

	attentionAccuracy     = 60.0
	attentionOverdueWords = 10

	topPerformerLimit     = 5
	strugglingLimit       = 5
	topicInsightLimit     = 5
	attentionStudentLimit = 10
)

// ClassifyProficiency rates one student's hold on one word.
func ClassifyProficiency(encounters, correct int) Proficiency {
	if encounters <= 0 {
		return ProficiencyStruggling
	}
	accuracy := float64(correct) / float64(encounters) * 100
	switch {
	case accuracy < strugglingAccuracy || encounters < strugglingEncounters:
		return ProficiencyStruggling
	case accuracy >= proficientAccuracy && encounters >= proficientEncounters:
		return ProficiencyProficient
	}
	return ProficiencyLearning
}

// VocabularyRecord is one student's record for one word, whatever table it
// came from.
type VocabularyRecord struct {
	StudentID    string
	VocabularyID string
	Encounters   int
	Correct      int
	Mastery      int
	LastSeenAt   *time.Time
	NextReviewAt *time.Time
}

func (r VocabularyRecord) Proficiency() Proficiency {
	return ClassifyProficiency(r.Encounters, r.Correct)
}

func (r VocabularyRecord) OverdueAt(now time.Time) bool {
	return r.NextReviewAt != nil && r.NextReviewAt.Before(now)
}

// MergeVocabularyRecords combines gem collection and assignment rows into
// one record per student and word. Counts add up; mastery and dates take
// the maximum.
func MergeVocabularyRecords(gems []*models.VocabularyGemCollection, assignments []*models.AssignmentVocabularyProgress) []VocabularyRecord {
	merged := make(map[string]*VocabularyRecord)
	get := func(studentID, vocabID string) *VocabularyRecord {
		key := studentID + "\x00" + vocabID
		r, ok := merged[key]
		if !ok {
			r = &VocabularyRecord{StudentID: studentID, VocabularyID: vocabID}
			merged[key] = r
		}
		return r
	}

	for _, g := range gems {
		if g == nil || g.VocabularyItemID == "" {
			continue
		}
		r := get(g.StudentID, g.VocabularyItemID)
		r.Encounters += g.TotalEncounters
		r.Correct += g.CorrectEncounters
		if g.MasteryLevel > r.Mastery {
			r.Mastery = g.MasteryLevel
		}
		r.LastSeenAt = laterTime(r.LastSeenAt, g.LastEncounteredAt)
		r.NextReviewAt = laterTime(r.NextReviewAt, g.NextReviewAt)
	}
	for _, a := range assignments {
		if a == nil || a.VocabularyID == "" {
			continue
		}
		r := get(a.StudentID, a.VocabularyID)
		r.Encounters += a.SeenCount
		r.Correct += a.CorrectCount
		r.LastSeenAt = laterTime(r.LastSeenAt, a.LastSeenAt)
	}

	out := make([]VocabularyRecord, 0, len(merged))
	for _, key := range sortedKeys(merged) {
		out = append(out, *merged[key])
	}
	return out
}

type VocabularyInput struct {
	Enrollments []*models.ClassEnrollment
	Profiles    []*models.UserProfile
	Records     []VocabularyRecord
	Items       []*models.VocabularyItem
	Sessions    []*models.GameSession
	Sections    SectionSet
	// From and To are inclusive calendar days in Location, used for trends.
	From     time.Time
	To       time.Time
	Now      time.Time
	Location *time.Location
}

type StudentRef struct {
	StudentID string
	Name      string
	Accuracy  *float64
}

type ClassVocabularyStats struct {
	TotalStudents            int
	StudentsWithData         int
	TotalWords               int
	ProficientWords          int
	LearningWords            int
	StrugglingWords          int
	AverageAccuracy          *float64
	TotalEncounters          int
	StudentsWithOverdueWords int
	TopPerformers            []StudentRef
	StrugglingStudents       []StudentRef
}

type StudentVocabularyProgress struct {
	StudentID       string
	Name            string
	TotalWords      int
	ProficientWords int
	LearningWords   int
	StrugglingWords int
	OverdueWords    int
	Encounters      int
	Correct         int
	Accuracy        *float64
	AverageMastery  *float64
	LastActivity    *time.Time
}

type TrendPoint struct {
	Date            string
	ActiveStudents  int
	Encounters      int
	Correct         int
	Accuracy        *float64
	ProficientWords int
	LearningWords   int
	StrugglingWords int
}

type TopicAnalysis struct {
	Language          string
	Category          string
	Subcategory       string
	CurriculumLevel   string
	TotalWords        int
	StudentsEngaged   int
	Encounters        int
	Correct           int
	AverageAccuracy   *float64
	IsWeak            bool
	IsStrong          bool
	RecommendedAction string
}

func (t TopicAnalysis) key() string {
	return t.Language + "\x00" + t.Category + "\x00" + t.Subcategory + "\x00" + t.CurriculumLevel
}

type WordAnalytics struct {
	VocabularyID       string
	Word               string
	Translation        string
	Category           string
	Encounters         int
	Correct            int
	Accuracy           *float64
	Proficiency        Proficiency
	StudentsStruggling int
	StudentsLearning   int
	StudentsProficient int
	AverageMastery     *float64
}

type VocabularyInsights struct {
	WeakestTopics            []TopicAnalysis
	StrongestTopics          []TopicAnalysis
	StudentsNeedingAttention []StudentVocabularyProgress
	Recommendations          []string
}

// VocabularyAnalytics holds the requested sections. Unrequested sections are
// nil.
type VocabularyAnalytics struct {
	ClassStats *ClassVocabularyStats
	Students   []StudentVocabularyProgress
	Trends     []TrendPoint
	Topics     []TopicAnalysis
	Words      []WordAnalytics
	Insights   VocabularyInsights
}

// AnalyzeVocabulary computes the requested sections plus the insights.
func AnalyzeVocabulary(in VocabularyInput) VocabularyAnalytics {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	enrolled := make(map[string]struct{})
	for _, e := range in.Enrollments {
		if e != nil {
			enrolled[e.StudentID] = struct{}{}
		}
	}
	records := make([]VocabularyRecord, 0, len(in.Records))
	for _, r := range in.Records {
		if _, ok := enrolled[r.StudentID]; ok {
			records = append(records, r)
		}
	}

	// Insights always need the student, topic and class views, so those are
	// computed even when they are not returned.
	students := studentVocabularyProgress(enrolled, in.Profiles, records, in.Now)
	topics := topicAnalysis(records, in.Items)
	stats := classVocabularyStats(len(enrolled), students, records)

	var out VocabularyAnalytics
	if in.Sections.Has(SectionStats) {
		out.ClassStats = &stats
	}
	if in.Sections.Has(SectionStudents) {
		out.Students = students
	}
	if in.Sections.Has(SectionTrends) {
		out.Trends = vocabularyTrends(enrolled, records, in.Sessions, in.From, in.To, loc)
	}
	if in.Sections.Has(SectionTopics) {
		out.Topics = topics
	}
	if in.Sections.Has(SectionWords) {
		out.Words = wordAnalytics(records, in.Items)
	}
	out.Insights = vocabularyInsights(topics, students, &stats)
	return out
}

func studentVocabularyProgress(enrolled map[string]struct{}, profiles []*models.UserProfile, records []VocabularyRecord, now time.Time) []StudentVocabularyProgress {
	names := make(map[string]string)
	for _, p := range profiles {
		if p != nil {
			names[p.UserID] = p.Name()
		}
	}

	byStudent := make(map[string]*StudentVocabularyProgress, len(enrolled))
	mastery := make(map[string][]*float64)
	for id := range enrolled {
		name := names[id]
		if name == "" {
			name = id
		}
		byStudent[id] = &StudentVocabularyProgress{StudentID: id, Name: name}
	}
	for _, r := range records {
		sp := byStudent[r.StudentID]
		sp.TotalWords++
		switch r.Proficiency() {
		case ProficiencyProficient:
			sp.ProficientWords++
		case ProficiencyLearning:
			sp.LearningWords++
		default:
			sp.StrugglingWords++
		}
		if r.OverdueAt(now) {
			sp.OverdueWords++
		}
		sp.Encounters += r.Encounters
		sp.Correct += r.Correct
		sp.LastActivity = laterTime(sp.LastActivity, r.LastSeenAt)
		mastery[r.StudentID] = append(mastery[r.StudentID], floatPtr(float64(r.Mastery)))
	}

	out := make([]StudentVocabularyProgress, 0, len(byStudent))
	for _, id := range sortedKeys(byStudent) {
		sp := byStudent[id]
		sp.Accuracy = percent(sp.Correct, sp.Encounters)
		sp.AverageMastery = mean(mastery[id])
		out = append(out, *sp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.Accuracy == nil) != (b.Accuracy == nil) {
			return a.Accuracy != nil
		}
		if a.Accuracy != nil && *a.Accuracy != *b.Accuracy {
			return *a.Accuracy > *b.Accuracy
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.StudentID < b.StudentID
	})
	return out
}

func classVocabularyStats(totalStudents int, students []StudentVocabularyProgress, records []VocabularyRecord) ClassVocabularyStats {
	stats := ClassVocabularyStats{
		TotalStudents:      totalStudents,
		TopPerformers:      []StudentRef{},
		StrugglingStudents: []StudentRef{},
	}

	words := make(map[string]struct{})
	for _, r := range records {
		words[r.VocabularyID] = struct{}{}
		stats.TotalEncounters += r.Encounters
	}
	stats.TotalWords = len(words)

	accuracies := make([]*float64, 0, len(students))
	withAccuracy := make([]StudentVocabularyProgress, 0, len(students))
	struggling := make([]StudentVocabularyProgress, 0)
	for _, sp := range students {
		stats.ProficientWords += sp.ProficientWords
		stats.LearningWords += sp.LearningWords
		stats.StrugglingWords += sp.StrugglingWords
		if sp.TotalWords > 0 {
			stats.StudentsWithData++
		}
		if sp.OverdueWords > 0 {
			stats.StudentsWithOverdueWords++
		}
		if sp.Accuracy != nil {
			accuracies = append(accuracies, sp.Accuracy)
			withAccuracy = append(withAccuracy, sp)
		}
		if sp.StrugglingWords > 0 {
			struggling = append(struggling, sp)
		}
	}
	stats.AverageAccuracy = mean(accuracies)

	sort.SliceStable(withAccuracy, func(i, j int) bool {
		a, b := withAccuracy[i], withAccuracy[j]
		if *a.Accuracy != *b.Accuracy {
			return *a.Accuracy > *b.Accuracy
		}
		if a.ProficientWords != b.ProficientWords {
			return a.ProficientWords > b.ProficientWords
		}
		return a.StudentID < b.StudentID
	})
	for i := 0; i < len(withAccuracy) && i < topPerformerLimit; i++ {
		stats.TopPerformers = append(stats.TopPerformers, studentRef(withAccuracy[i]))
	}

	sort.SliceStable(struggling, func(i, j int) bool {
		a, b := struggling[i], struggling[j]
		if a.StrugglingWords != b.StrugglingWords {
			return a.StrugglingWords > b.StrugglingWords
		}
		if c := compareNullableAsc(a.Accuracy, b.Accuracy); c != 0 {
			return c < 0
		}
		return a.StudentID < b.StudentID
	})
	for i := 0; i < len(struggling) && i < strugglingLimit; i++ {
		stats.StrugglingStudents = append(stats.StrugglingStudents, studentRef(struggling[i]))
	}
	return stats
}

func studentRef(sp StudentVocabularyProgress) StudentRef {
	return StudentRef{StudentID: sp.StudentID, Name: sp.Name, Accuracy: sp.Accuracy}
}

// TrendDays lists the calendar days from..to inclusive, formatted as dates.
func TrendDays(from, to time.Time, loc *time.Location) []string {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(from.In(loc).Year(), from.In(loc).Month(), from.In(loc).Day(), 0, 0, 0, 0, loc)
	end := time.Date(to.In(loc).Year(), to.In(loc).Month(), to.In(loc).Day(), 0, 0, 0, 0, loc)
	days := make([]string, 0)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format("2006-01-02"))
	}
	return days
}

func vocabularyTrends(enrolled map[string]struct{}, records []VocabularyRecord, sessions []*models.GameSession, from, to time.Time, loc *time.Location) []TrendPoint {
	days := TrendDays(from, to, loc)
	points := make(map[string]*TrendPoint, len(days))
	active := make(map[string]map[string]struct{}, len(days))
	for _, d := range days {
		points[d] = &TrendPoint{Date: d}
		active[d] = make(map[string]struct{})
	}

	for _, s := range sessions {
		if s == nil {
			continue
		}
		if _, ok := enrolled[s.StudentID]; !ok {
			continue
		}
		day := s.StartedAt.In(loc).Format("2006-01-02")
		if set, ok := active[day]; ok {
			set[s.StudentID] = struct{}{}
		}
	}
	for _, r := range records {
		if r.LastSeenAt == nil {
			continue
		}
		p, ok := points[r.LastSeenAt.In(loc).Format("2006-01-02")]
		if !ok {
			continue
		}
		p.Encounters += r.Encounters
		p.Correct += r.Correct
		switch r.Proficiency() {
		case ProficiencyProficient:
			p.ProficientWords++
		case ProficiencyLearning:
			p.LearningWords++
		default:
			p.StrugglingWords++
		}
	}

	out := make([]TrendPoint, 0, len(days))
	for _, d := range days {
		p := points[d]
		p.ActiveStudents = len(active[d])
		p.Accuracy = percent(p.Correct, p.Encounters)
		out = append(out, *p)
	}
	return out
}

func topicAnalysis(records []VocabularyRecord, items []*models.VocabularyItem) []TopicAnalysis {
	itemByID := indexItems(items)

	type topicTally struct {
		topic    TopicAnalysis
		words    map[string]struct{}
		students map[string]struct{}
	}
	tallies := make(map[string]*topicTally)
	for _, r := range records {
		t := TopicAnalysis{Category: "uncategorized"}
		if item, ok := itemByID[r.VocabularyID]; ok {
			t.Language = item.Language
			t.Category = item.Category
			t.Subcategory = item.Subcategory
			t.CurriculumLevel = item.CurriculumLevel
			if t.Category == "" {
				t.Category = "uncategorized"
			}
		}
		key := t.key()
		tally, ok := tallies[key]
		if !ok {
			tally = &topicTally{topic: t, words: map[string]struct{}{}, students: map[string]struct{}{}}
			tallies[key] = tally
		}
		tally.words[r.VocabularyID] = struct{}{}
		tally.students[r.StudentID] = struct{}{}
		tally.topic.Encounters += r.Encounters
		tally.topic.Correct += r.Correct
	}

	out := make([]TopicAnalysis, 0, len(tallies))
	for _, key := range sortedKeys(tallies) {
		tally := tallies[key]
		t := tally.topic
		t.TotalWords = len(tally.words)
		t.StudentsEngaged = len(tally.students)
		t.AverageAccuracy = percent(t.Correct, t.Encounters)
		if t.AverageAccuracy != nil {
			t.IsWeak = *t.AverageAccuracy < weakTopicAccuracy
			t.IsStrong = *t.AverageAccuracy >= strongTopicAccuracy
		}
		t.RecommendedAction = topicAction(t)
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StudentsEngaged != out[j].StudentsEngaged {
			return out[i].StudentsEngaged > out[j].StudentsEngaged
		}
		return out[i].key() < out[j].key()
	})
	return out
}

func topicAction(t TopicAnalysis) string {
	switch {
	case t.IsWeak:
		return fmt.Sprintf("Schedule targeted review of %s vocabulary", t.Category)
	case t.IsStrong:
		return fmt.Sprintf("Extend %s with higher-level vocabulary", t.Category)
	case t.AverageAccuracy == nil:
		return fmt.Sprintf("Introduce %s vocabulary in class", t.Category)
	}
	return "Continue regular practice"
}

func wordAnalytics(records []VocabularyRecord, items []*models.VocabularyItem) []WordAnalytics {
	itemByID := indexItems(items)

	byWord := make(map[string]*WordAnalytics)
	mastery := make(map[string][]*float64)
	for _, r := range records {
		w, ok := byWord[r.VocabularyID]
		if !ok {
			w = &WordAnalytics{VocabularyID: r.VocabularyID}
			if item, found := itemByID[r.VocabularyID]; found {
				w.Word = item.Word
				w.Translation = item.Translation
				w.Category = item.Category
			}
			byWord[r.VocabularyID] = w
		}
		w.Encounters += r.Encounters
		w.Correct += r.Correct
		switch r.Proficiency() {
		case ProficiencyProficient:
			w.StudentsProficient++
		case ProficiencyLearning:
			w.StudentsLearning++
		default:
			w.StudentsStruggling++
		}
		mastery[r.VocabularyID] = append(mastery[r.VocabularyID], floatPtr(float64(r.Mastery)))
	}

	out := make([]WordAnalytics, 0, len(byWord))
	for _, id := range sortedKeys(byWord) {
		w := byWord[id]
		w.Accuracy = percent(w.Correct, w.Encounters)
		w.Proficiency = ClassifyProficiency(w.Encounters, w.Correct)
		w.AverageMastery = mean(mastery[id])
		out = append(out, *w)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.Encounters == 0) != (b.Encounters == 0) {
			return a.Encounters > 0
		}
		if a.Encounters > 0 {
			if c := compareRatio(a.Correct, a.Encounters, b.Correct, b.Encounters); c != 0 {
				return c < 0
			}
		}
		if a.Encounters != b.Encounters {
			return a.Encounters > b.Encounters
		}
		return a.VocabularyID < b.VocabularyID
	})
	return out
}

func vocabularyInsights(topics []TopicAnalysis, students []StudentVocabularyProgress, stats *ClassVocabularyStats) VocabularyInsights {
	insights := VocabularyInsights{
		WeakestTopics:            []TopicAnalysis{},
		StrongestTopics:          []TopicAnalysis{},
		StudentsNeedingAttention: []StudentVocabularyProgress{},
		Recommendations:          []string{},
	}

	var weak, strong []TopicAnalysis
	for _, t := range topics {
		if t.IsWeak {
			weak = append(weak, t)
		}
		if t.IsStrong {
			strong = append(strong, t)
		}
	}
	sort.SliceStable(weak, func(i, j int) bool {
		if c := compareRatio(weak[i].Correct, weak[i].Encounters, weak[j].Correct, weak[j].Encounters); c != 0 {
			return c < 0
		}
		return weak[i].key() < weak[j].key()
	})
	sort.SliceStable(strong, func(i, j int) bool {
		if c := compareRatio(strong[i].Correct, strong[i].Encounters, strong[j].Correct, strong[j].Encounters); c != 0 {
			return c > 0
		}
		return strong[i].key() < strong[j].key()
	})
	for i := 0; i < len(weak) && i < topicInsightLimit; i++ {
		insights.WeakestTopics = append(insights.WeakestTopics, weak[i])
	}
	for i := 0; i < len(strong) && i < topicInsightLimit; i++ {
		insights.StrongestTopics = append(insights.StrongestTopics, strong[i])
	}

	var attention []StudentVocabularyProgress
	for _, sp := range students {
		if sp.TotalWords == 0 {
			continue
		}
		lowAccuracy := sp.Accuracy == nil || *sp.Accuracy < attentionAccuracy
		if lowAccuracy || sp.OverdueWords > attentionOverdueWords {
			attention = append(attention, sp)
		}
	}
	sort.SliceStable(attention, func(i, j int) bool {
		a, b := attention[i], attention[j]
		// no encounters at all is the most urgent case
		if (a.Accuracy == nil) != (b.Accuracy == nil) {
			return a.Accuracy == nil
		}
		if a.Accuracy != nil && *a.Accuracy != *b.Accuracy {
			return *a.Accuracy < *b.Accuracy
		}
		if a.OverdueWords != b.OverdueWords {
			return a.OverdueWords > b.OverdueWords
		}
		return a.StudentID < b.StudentID
	})
	for i := 0; i < len(attention) && i < attentionStudentLimit; i++ {
		insights.StudentsNeedingAttention = append(insights.StudentsNeedingAttention, attention[i])
	}

	if len(weak) > 0 {
		insights.Recommendations = append(insights.Recommendations,
			fmt.Sprintf("Focus review on %d weak topic(s), starting with %s", len(weak), weak[0].Category))
	}
	if len(attention) > 0 {
		insights.Recommendations = append(insights.Recommendations,
			fmt.Sprintf("%d student(s) need attention; consider targeted intervention", len(attention)))
	}
	if stats != nil {
		if stats.AverageAccuracy != nil && *stats.AverageAccuracy < 70 {
			insights.Recommendations = append(insights.Recommendations,
				"Class accuracy is below 70%; slow the pace of new vocabulary")
		}
		if stats.StudentsWithOverdueWords > 0 {
			insights.Recommendations = append(insights.Recommendations,
				fmt.Sprintf("%d student(s) have words overdue for review", stats.StudentsWithOverdueWords))
		}
	}
	if len(insights.Recommendations) == 0 {
		insights.Recommendations = append(insights.Recommendations, "Class vocabulary progress is on track")
	}
	return insights
}

func indexItems(items []*models.VocabularyItem) map[string]*models.VocabularyItem {
	byID := make(map[string]*models.VocabularyItem, len(items))
	for _, item := range items {
		if item != nil {
			byID[item.ID] = item
		}
	}
	return byID
}
