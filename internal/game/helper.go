package game

import "fmt"

type Outcome string

const (
	InProgress Outcome = "in_progress"
	XWins      Outcome = "x_wins"
	OWins      Outcome = "o_wins"
	Draw       Outcome = "draw"
)

// Outcome summarises the board's status.
func (b Board) Outcome() Outcome {
	switch b.Winner() {
	case PlayerX:
		return XWins
	case PlayerO:
		return OWins
	}
	if b.IsFull() {
		return Draw
	}
	return InProgress
}

// BoardFromRows converts a transport grid into a Board and validates it.
func BoardFromRows(rows [][]string) (Board, error) {
	var b Board
	if len(rows) != 3 {
		return b, fmt.Errorf("%w: expected 3 rows, got %d", ErrInvalidBoard, len(rows))
	}
	for r, row := range rows {
		if len(row) != 3 {
			return b, fmt.Errorf("%w: row %d has %d cells", ErrInvalidBoard, r, len(row))
		}
		for c, cell := range row {
			b[r][c] = PlayerMark(cell)
		}
	}
	if err := b.Validate(); err != nil {
		return Board{}, err
	}
	return b, nil
}

// Rows converts the board to a dynamic slice of slices of strings.
func (b Board) Rows() [][]string {
	rows := make([][]string, 3)
	for i := range [3]int{} {
		rows[i] = make([]string, 3)
		for j := range [3]int{} {
			rows[i][j] = string(b[i][j])
		}
	}
	return rows
}

// Compact renders the board row-major as nine characters, '.' for empty cells.
func (b Board) Compact() string {
	buf := make([]byte, 0, 9)
	for _, row := range b {
		for _, cell := range row {
			if cell == None {
				buf = append(buf, '.')
				continue
			}
			buf = append(buf, cell[0])
		}
	}
	return string(buf)
}

// ParseCompact is the inverse of Compact. Both '.' and '-' denote an empty cell.
func ParseCompact(s string) (Board, error) {
	if len(s) != 9 {
		return Board{}, fmt.Errorf("%w: expected 9 cells, got %d", ErrInvalidBoard, len(s))
	}
	rows := make([][]string, 3)
	for r := range rows {
		rows[r] = make([]string, 3)
		for c := range rows[r] {
			switch ch := s[r*3+c]; ch {
			case '.', '-':
				rows[r][c] = string(None)
			case 'x', 'X':
				rows[r][c] = string(PlayerX)
			case 'o', 'O':
				rows[r][c] = string(PlayerO)
			default:
				return Board{}, fmt.Errorf("%w: unknown cell %q", ErrInvalidBoard, ch)
			}
		}
	}
	return BoardFromRows(rows)
}
