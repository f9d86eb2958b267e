package report

import (
	"fmt"
	"io"

	"github.com/logrusorgru/aurora"

	"tiny-qbert-rl/internal/engine"
)

// RenderBoard draws board with the agent and enemy marked. Void cells are blank. Colors are
// emitted only when colors is true.
func RenderBoard(w io.Writer, board engine.Board, player, enemy engine.Position, colors bool) {
	au := aurora.NewAurora(colors)
	for r, row := range board {
		for c, kind := range row {
			pos := engine.Position{Row: r, Col: c}
			switch {
			case pos == player && pos == enemy:
				fmt.Fprint(w, au.Bold(au.Red("X ")))
			case pos == player:
				fmt.Fprint(w, au.Bold(au.Green("@ ")))
			case pos == enemy || kind == engine.CellEnemy:
				fmt.Fprint(w, au.Magenta("E "))
			case kind == engine.CellStartCube:
				fmt.Fprint(w, au.Blue("o "))
			case kind == engine.CellGoalCube:
				fmt.Fprint(w, au.Yellow("# "))
			default:
				fmt.Fprint(w, "  ")
			}
		}
		fmt.Fprintln(w)
	}
}
