package model

import "testing"

func TestLevelForPoints(t *testing.T) {
	tests := []struct {
		points int
		want   Level
	}{
		{0, LevelBronze},
		{499, LevelBronze},
		{500, LevelSilver},
		{1499, LevelSilver},
		{1500, LevelGold},
		{2999, LevelGold},
		{3000, LevelPlatinum},
		{5999, LevelPlatinum},
		{6000, LevelDiamond},
		{100000, LevelDiamond},
	}
	for _, tt := range tests {
		if got := LevelForPoints(tt.points); got != tt.want {
			t.Errorf("LevelForPoints(%d) = %q, want %q", tt.points, got, tt.want)
		}
	}
}

func TestAreaForDiscipline(t *testing.T) {
	tests := []struct {
		discipline string
		want       string
	}{
		{"matematica", "Matemática"},
		{"portugues", "Linguagens"},
		{"historia", "Ciências Humanas"},
		{"quimica", "Ciências da Natureza"},
		{"geral", "Geral"},
		{"desconhecida", "Geral"},
	}
	for _, tt := range tests {
		if got := AreaForDiscipline(tt.discipline); got != tt.want {
			t.Errorf("AreaForDiscipline(%q) = %q, want %q", tt.discipline, got, tt.want)
		}
	}
}

func TestQuestionPayloadHidesAnswer(t *testing.T) {
	q := Question{
		ID:         1,
		Discipline: "matematica",
		Prompt:     "2+2?",
		Options:    []string{"1", "2", "3", "4", "5"},
		Correct:    3,
		Hash:       "abc",
	}
	p := q.Payload()
	if p.ID != q.ID || p.Prompt != q.Prompt || len(p.Options) != 5 {
		t.Errorf("payload lost fields: %+v", p)
	}
}
