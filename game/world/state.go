package world

import (
	"errors"
	"fmt"

	"github.com/kasuganosora/miniquest/game/combat"
)

// QuestState is the progress of the Elder's quest.
type QuestState string

const (
	QuestNotStarted   QuestState = "not_started"
	QuestActive       QuestState = "active"
	QuestBossDefeated QuestState = "boss_defeated"
	QuestCompleted    QuestState = "completed"
)

func (q QuestState) Valid() bool {
	switch q {
	case QuestNotStarted, QuestActive, QuestBossDefeated, QuestCompleted:
		return true
	}
	return false
}

// QuestChoice is the player's answer to the Elder.
type QuestChoice string

const (
	ChoiceAccept  QuestChoice = "accept"
	ChoiceDecline QuestChoice = "decline"
	ChoiceClaim   QuestChoice = "claim"
)

// Quest reward for bringing the boss down.
const (
	QuestRewardGold    = 80
	QuestRewardPotions = 3
)

// ErrQuestChoice is returned when a choice does not fit the quest state.
var ErrQuestChoice = errors.New("choice not available")

// State is the world-level progress that outlives encounters.
type State struct {
	BossDefeated bool       `json:"boss_defeated"`
	ElderQuest   QuestState `json:"elder_quest"`
	SignRead     bool       `json:"sign_read"`
	// OpenedChests is keyed by the client's chest key, e.g. "dungeon:3,4".
	OpenedChests map[string]bool `json:"opened_chests,omitempty"`
}

// NewState returns the state of a fresh game.
func NewState() *State {
	return &State{ElderQuest: QuestNotStarted}
}

func (s *State) Clone() *State {
	c := *s
	if s.OpenedChests != nil {
		c.OpenedChests = make(map[string]bool, len(s.OpenedChests))
		for k, v := range s.OpenedChests {
			c.OpenedChests[k] = v
		}
	}
	return &c
}

func (s *State) Validate() error {
	if !s.ElderQuest.Valid() {
		return fmt.Errorf("world: unknown quest state %q", s.ElderQuest)
	}
	return nil
}

// MarkBossDefeated records the boss kill and advances an active quest.
func (s *State) MarkBossDefeated() {
	s.BossDefeated = true
	if s.ElderQuest == QuestActive {
		s.ElderQuest = QuestBossDefeated
	}
}

// ElderGreeting is what the Elder says in the current quest state.
func (s *State) ElderGreeting() string {
	switch s.ElderQuest {
	case QuestNotStarted:
		return "Traveler… a dark presence lurks in the dungeon. Defeat the beast on the red altar and return. Will you accept this quest?"
	case QuestActive:
		return "The dungeon gate is to the southeast. Find the red altar and defeat the beast."
	case QuestBossDefeated:
		return "You did it! The town is safe. Take this reward: 80 gold and a potion stash."
	default:
		return "You’ve already done a great deed. Train, explore, and grow stronger."
	}
}

// TalkToElder applies choice and returns the log line it produces.
func (s *State) TalkToElder(choice QuestChoice, hero *combat.Hero) (string, error) {
	switch {
	case choice == ChoiceAccept && s.ElderQuest == QuestNotStarted:
		s.ElderQuest = QuestActive
		return "Quest accepted: Defeat the dungeon boss.", nil

	case choice == ChoiceDecline && s.ElderQuest == QuestNotStarted:
		return "You decline for now.", nil

	case choice == ChoiceClaim && s.ElderQuest == QuestBossDefeated:
		hero.Gold += QuestRewardGold
		hero.Potions += QuestRewardPotions
		s.ElderQuest = QuestCompleted
		return fmt.Sprintf("Quest complete! +%d gold, +%d potions.", QuestRewardGold, QuestRewardPotions), nil
	}
	return "", fmt.Errorf("%w: %s while quest is %s", ErrQuestChoice, choice, s.ElderQuest)
}
