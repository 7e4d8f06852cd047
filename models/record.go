package models

import "strconv"

// Columns is the fixed export schema, in export order.
var Columns = [...]string{
	"player_id",
	"character_1",
	"character_2",
	"character_3",
	"character_4",
	"banned_character",
	"win",
	"opponent_character_1",
	"opponent_character_2",
	"opponent_character_3",
	"opponent_character_4",
	"opponent_banned_character",
	"preban_1",
	"preban_2",
	"opponent_preban_1",
	"opponent_preban_2",
}

// ColumnCount is the width of every exported row.
const ColumnCount = len(Columns)

// Side is one team's slice of a record. Slot arrays are fixed size so an
// absent character is the empty string, never a missing field.
type Side struct {
	Characters [4]string `json:"characters"`
	Banned     string    `json:"banned"`
	Prebans    [2]string `json:"prebans"`
}

// BattleRecord is one exported row.
type BattleRecord struct {
	// PlayerID is the 1-based position of the record in the output.
	PlayerID int  `json:"player_id"`
	Own      Side `json:"own"`
	Win      bool `json:"win"`
	Opponent Side `json:"opponent"`
}

// Row flattens the record into ColumnCount fields in Columns order.
func (r BattleRecord) Row() []string {
	win := "0"
	if r.Win {
		win = "1"
	}
	return []string{
		strconv.Itoa(r.PlayerID),
		r.Own.Characters[0],
		r.Own.Characters[1],
		r.Own.Characters[2],
		r.Own.Characters[3],
		r.Own.Banned,
		win,
		r.Opponent.Characters[0],
		r.Opponent.Characters[1],
		r.Opponent.Characters[2],
		r.Opponent.Characters[3],
		r.Opponent.Banned,
		r.Own.Prebans[0],
		r.Own.Prebans[1],
		r.Opponent.Prebans[0],
		r.Opponent.Prebans[1],
	}
}

// Header returns a copy of Columns as a slice.
func Header() []string {
	h := make([]string, ColumnCount)
	copy(h, Columns[:])
	return h
}
