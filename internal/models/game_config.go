package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

type GameConfigType string

const (
	GameConfigVocabulary GameConfigType = "vocabulary"
	GameConfigAssessment GameConfigType = "assessment"
	GameConfigGrammar    GameConfigType = "grammar"
	GameConfigLegacy     GameConfigType = "legacy"
)

var ErrUnknownGameConfig = errors.New("unknown game config type")

// GameConfig is the per-assignment game configuration, discriminated by its
// "type" field.
type GameConfig interface {
	ConfigType() GameConfigType
}

type VocabularyGameConfig struct {
	Type       GameConfigType `json:"type"`
	WordListID string         `json:"word_list_id,omitempty"`
	WordCount  int            `json:"word_count"`
	Language   string         `json:"language"`
}

func (VocabularyGameConfig) ConfigType() GameConfigType { return GameConfigVocabulary }

type AssessmentGameConfig struct {
	Type      GameConfigType `json:"type"`
	ExamBoard string         `json:"exam_board"`
	Paper     string         `json:"paper"`
	Skill     string         `json:"skill"` // reading, writing, listening, speaking
}

func (AssessmentGameConfig) ConfigType() GameConfigType { return GameConfigAssessment }

type GrammarGameConfig struct {
	Type  GameConfigType `json:"type"`
	Topic string         `json:"topic"`
	Tense string         `json:"tense,omitempty"`
}

func (GrammarGameConfig) ConfigType() GameConfigType { return GameConfigGrammar }

// LegacyGameConfig is the untagged shape older assignments were saved with:
// {"gameConfig":{"selectedGames":[...]}}.
type LegacyGameConfig struct {
	Type          GameConfigType `json:"type"`
	GameType      string         `json:"game_type,omitempty"`
	SelectedGames []string       `json:"selected_games,omitempty"`
}

func (LegacyGameConfig) ConfigType() GameConfigType { return GameConfigLegacy }

// DecodeGameConfig reads the discriminator first and then decodes into the
// matching concrete type. When the payload carries no "type", gameType (the
// assignment's game_type column) is used instead, and an untagged payload
// that still matches no known type is read as a LegacyGameConfig. An explicit
// unknown "type" is an error.
func DecodeGameConfig(raw []byte, gameType string) (GameConfig, error) {
	var head struct {
		Type GameConfigType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("failed to decode game config: %w", err)
	}
	tagged := head.Type != ""
	kind := head.Type
	if !tagged {
		kind = GameConfigType(gameType)
	}

	var (
		cfg GameConfig
		err error
	)
	switch kind {
	case GameConfigVocabulary:
		c := VocabularyGameConfig{}
		err = json.Unmarshal(raw, &c)
		c.Type = kind
		cfg = c
	case GameConfigAssessment:
		c := AssessmentGameConfig{}
		err = json.Unmarshal(raw, &c)
		c.Type = kind
		cfg = c
	case GameConfigGrammar:
		c := GrammarGameConfig{}
		err = json.Unmarshal(raw, &c)
		c.Type = kind
		cfg = c
	default:
		if tagged {
			return nil, fmt.Errorf("%w: %q", ErrUnknownGameConfig, head.Type)
		}
		cfg, err = decodeLegacyGameConfig(raw, gameType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s game config: %w", kind, err)
	}
	return cfg, nil
}

func decodeLegacyGameConfig(raw []byte, gameType string) (GameConfig, error) {
	var legacy struct {
		SelectedGames []string `json:"selectedGames"`
		GameConfig    *struct {
			SelectedGames []string `json:"selectedGames"`
		} `json:"gameConfig"`
	}
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, err
	}
	c := LegacyGameConfig{Type: GameConfigLegacy, GameType: gameType, SelectedGames: legacy.SelectedGames}
	if legacy.GameConfig != nil && len(legacy.GameConfig.SelectedGames) > 0 {
		c.SelectedGames = legacy.GameConfig.SelectedGames
	}
	return c, nil
}
