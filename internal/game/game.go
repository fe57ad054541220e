package game

import (
	"errors"
	"fmt"
	"strings"
)

// PlayerMark represents the mark of a player (X, O) or an empty cell.
type PlayerMark string

const (
	// Player marks
	None    PlayerMark = ""
	PlayerX PlayerMark = "X"
	PlayerO PlayerMark = "O"

	// Board boundaries
	BorderMin = 0
	BorderMax = 2
)

var (
	ErrInvalidMove  = errors.New("invalid move")
	ErrInvalidBoard = errors.New("invalid board")
)

// Opponent returns the other player's mark. None has no opponent.
func (m PlayerMark) Opponent() PlayerMark {
	switch m {
	case PlayerX:
		return PlayerO
	case PlayerO:
		return PlayerX
	default:
		return None
	}
}

// Action identifies a cell by row and column.
type Action struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (a Action) String() string {
	return fmt.Sprintf("(%d, %d)", a.Row, a.Col)
}

func (a Action) inBounds() bool {
	return a.Row >= BorderMin && a.Row <= BorderMax && a.Col >= BorderMin && a.Col <= BorderMax
}

// Board is a 3x3 grid. It is a value: every transformation returns a new Board.
type Board [3][3]PlayerMark

// InitialState returns the empty starting board.
func InitialState() Board {
	return Board{}
}

// Player returns the mark that moves next. X moves whenever the mark counts are equal.
func (b Board) Player() PlayerMark {
	x, o := b.counts()
	if x == o {
		return PlayerX
	}
	return PlayerO
}

// Actions returns every empty cell in row-major order. A terminal board has none.
//
// The order is the search's tie-break order: among equally valued moves the
// first one returned here is chosen.
func (b Board) Actions() []Action {
	if b.Winner() != None {
		return nil
	}
	actions := make([]Action, 0, 9)
	for r := range [3]int{} {
		for c := range [3]int{} {
			if b[r][c] == None {
				actions = append(actions, Action{Row: r, Col: c})
			}
		}
	}
	return actions
}

// Result returns the board after the player to move marks the given cell.
// The receiver is left unchanged.
func (b Board) Result(a Action) (Board, error) {
	if !a.inBounds() {
		return b, fmt.Errorf("%w: %s is out of bounds", ErrInvalidMove, a)
	}
	if b[a.Row][a.Col] != None {
		return b, fmt.Errorf("%w: cell %s already occupied", ErrInvalidMove, a)
	}

	next := b
	next[a.Row][a.Col] = b.Player()
	return next, nil
}

// Winner returns the mark holding a complete row, column or diagonal, or None.
func (b Board) Winner() PlayerMark {
	// Check rows
	for i := range [3]int{} {
		if b[i][0] != None && b[i][0] == b[i][1] && b[i][1] == b[i][2] {
			return b[i][0]
		}
	}

	// Check columns
	for i := range [3]int{} {
		if b[0][i] != None && b[0][i] == b[1][i] && b[1][i] == b[2][i] {
			return b[0][i]
		}
	}

	// Check diagonals
	if b[0][0] != None && b[0][0] == b[1][1] && b[1][1] == b[2][2] {
		return b[0][0]
	}
	if b[0][2] != None && b[0][2] == b[1][1] && b[1][1] == b[2][0] {
		return b[0][2]
	}

	return None
}

// Terminal reports whether the game is over, by a win or a full board.
func (b Board) Terminal() bool {
	return b.Winner() != None || b.IsFull()
}

// Utility returns 1 if X has won, -1 if O has won and 0 otherwise.
// Only meaningful on terminal boards.
func (b Board) Utility() int {
	switch b.Winner() {
	case PlayerX:
		return 1
	case PlayerO:
		return -1
	default:
		return 0
	}
}

// IsFull reports whether no empty cell remains.
func (b Board) IsFull() bool {
	for r := range [3]int{} {
		for c := range [3]int{} {
			if b[r][c] == None {
				return false
			}
		}
	}
	return true
}

// Validate checks that every cell holds a known mark and that the mark
// counts could come from alternating play starting with X.
func (b Board) Validate() error {
	for r := range [3]int{} {
		for c := range [3]int{} {
			switch b[r][c] {
			case None, PlayerX, PlayerO:
			default:
				return fmt.Errorf("%w: unknown mark %q at (%d, %d)", ErrInvalidBoard, b[r][c], r, c)
			}
		}
	}

	x, o := b.counts()
	if x != o && x != o+1 {
		return fmt.Errorf("%w: %d X marks and %d O marks", ErrInvalidBoard, x, o)
	}
	return nil
}

func (b Board) counts() (x, o int) {
	for r := range [3]int{} {
		for c := range [3]int{} {
			switch b[r][c] {
			case PlayerX:
				x++
			case PlayerO:
				o++
			}
		}
	}
	return x, o
}

func (b Board) String() string {
	var sb strings.Builder
	for r := range [3]int{} {
		if r > 0 {
			sb.WriteString("\n---+---+---\n")
		}
		for c := range [3]int{} {
			if c > 0 {
				sb.WriteString("|")
			}
			mark := b[r][c]
			if mark == None {
				mark = " "
			}
			sb.WriteString(" " + string(mark) + " ")
		}
	}
	return sb.String()
}
