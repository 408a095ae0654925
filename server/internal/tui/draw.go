package tui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/trezz/shipdit/server/internal/game"
)

// Screen layout. Each board cell is two columns wide.
const (
	ownLeft    = 4
	enemyLeft  = 34
	boardTop   = 4
	statusRow  = boardTop + game.GridSize + 2
	fleetRow   = statusRow + 1
	helpRow    = fleetRow + 2
	cellWidth  = 2
	headerRow  = 0
	captionRow = boardTop - 2
)

var (
	styleDefault = tcell.StyleDefault
	styleWater   = tcell.StyleDefault.Foreground(tcell.ColorNavy)
	styleShip    = tcell.StyleDefault.Foreground(tcell.ColorSilver).Bold(true)
	styleMiss    = tcell.StyleDefault.Foreground(tcell.ColorTeal)
	styleHit     = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleSunk    = tcell.StyleDefault.Foreground(tcell.ColorMaroon)
	styleGhost   = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleBad     = tcell.StyleDefault.Foreground(tcell.ColorRed).Reverse(true)
	styleSplash  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleTitle   = tcell.StyleDefault.Bold(true)
)

func (a *App) drawText(x, y int, s string, style tcell.Style) {
	for i, r := range s {
		a.screen.SetContent(x+i, y, r, nil, style)
	}
}

func (a *App) setCell(left int, c game.Coordinate, r rune, style tcell.Style) {
	a.screen.SetContent(left+c.Z*cellWidth, boardTop+c.X, r, nil, style)
}

func (a *App) draw() {
	a.screen.Clear()

	phase := a.match.Phase()
	a.drawText(0, headerRow, "shipdit", styleTitle)
	a.drawText(10, headerRow, "phase: "+phase.String(), styleDefault)
	a.drawText(40, headerRow, fmt.Sprintf("shots: %d / %d", a.match.ShotsFired(human), a.match.ShotsFired(ai)), styleDefault)

	a.drawText(ownLeft, captionRow, "your fleet", styleTitle)
	a.drawText(enemyLeft, captionRow, "enemy waters", styleTitle)
	a.drawFrame(ownLeft)
	a.drawFrame(enemyLeft)
	a.drawOwn(phase)
	a.drawEnemy(phase)

	a.drawText(0, statusRow, a.status, styleDefault)
	a.drawText(0, fleetRow, a.fleetLine(phase), styleDefault)
	a.drawText(0, helpRow, helpLine(phase), styleDefault)

	a.screen.Show()
}

func (a *App) drawFrame(left int) {
	for i := 0; i < game.GridSize; i++ {
		a.screen.SetContent(left+i*cellWidth, boardTop-1, rune('0'+i), nil, styleDefault)
		a.screen.SetContent(left-2, boardTop+i, rune('0'+i), nil, styleDefault)
	}
}

func (a *App) drawOwn(phase game.Phase) {
	own, err := a.match.Own(human)
	if err != nil {
		return
	}
	for x := 0; x < game.GridSize; x++ {
		for z := 0; z < game.GridSize; z++ {
			cell := own[x][z]
			r, style := '~', styleWater
			switch {
			case cell.Tile.Sunk:
				r, style = '#', styleSunk
			case cell.Revealed && cell.Tile.IsOccupied():
				r, style = 'x', styleHit
			case cell.Revealed:
				r, style = 'o', styleMiss
			case cell.Tile.IsOccupied():
				r, style = rune(cell.Tile.Kind.Letter()), styleShip
			}
			a.setCell(ownLeft, game.Coordinate{X: x, Z: z}, r, style)
		}
	}

	if phase == game.PhasePlacingPlayer1 {
		a.drawGhost()
	}
	if a.splash != nil && a.splash.shooter == ai {
		a.setCell(ownLeft, a.splash.outcome.Coordinate, '*', styleSplash)
	}
}

// drawGhost previews the selected ship at the cursor, red when it cannot be
// placed there.
func (a *App) drawGhost() {
	if a.kind == game.Empty {
		a.setCell(ownLeft, a.cursor, '+', styleGhost)
		return
	}
	class, _ := a.match.Roster().Class(a.kind)
	cells, err := game.Footprint(a.cursor, class.Size, a.orient)
	if err != nil {
		return
	}
	style := styleGhost
	if _, err := a.match.CheckPlacement(human, a.kind, a.cursor, a.orient); err != nil {
		style = styleBad
	}
	for _, c := range cells {
		if c.InBounds() {
			a.setCell(ownLeft, c, rune(a.kind.Letter()), style)
		}
	}
}

func (a *App) drawEnemy(phase game.Phase) {
	sight, err := a.match.Opponent(human)
	if err != nil {
		return
	}
	for x := 0; x < game.GridSize; x++ {
		for z := 0; z < game.GridSize; z++ {
			c := game.Coordinate{X: x, Z: z}
			r, style := '~', styleWater
			switch sight.Cell(c) {
			case game.CellMiss:
				r, style = 'o', styleMiss
			case game.CellHit:
				r, style = 'x', styleHit
			case game.CellSunk:
				r, style = '#', styleSunk
			}
			if phase != game.PhasePlacingPlayer1 && c == a.cursor {
				style = style.Reverse(true)
			}
			a.setCell(enemyLeft, c, r, style)
		}
	}
	if a.splash != nil && a.splash.shooter == human {
		a.setCell(enemyLeft, a.splash.outcome.Coordinate, '*', styleSplash)
	}
}

func (a *App) fleetLine(phase game.Phase) string {
	if phase == game.PhasePlacingPlayer1 {
		left, err := a.match.Remaining(human)
		if err != nil {
			return ""
		}
		var parts []string
		for _, class := range a.match.Roster() {
			if n := left[class.Kind]; n > 0 {
				mark := " "
				if class.Kind == a.kind {
					mark = ">"
				}
				parts = append(parts, fmt.Sprintf("%s%s x%d (%d)", mark, class.Kind, n, class.Size))
			}
		}
		if len(parts) == 0 {
			return "all ships placed"
		}
		return "to place:" + strings.Join(parts, " ")
	}

	ships, err := a.match.Fleet(human)
	if err != nil {
		return ""
	}
	enemy, _ := a.match.Fleet(ai)
	return fmt.Sprintf("afloat: %d yours, %d theirs", len(ships), len(enemy))
}

func helpLine(phase game.Phase) string {
	switch phase {
	case game.PhasePlacingPlayer1:
		return "arrows/hjkl move  r rotate  tab ship  enter place  a auto  c clear  y ready  q quit"
	case game.PhaseGameOver:
		return "n new match  q quit"
	default:
		return "arrows/hjkl aim  enter fire  F forfeit  q quit"
	}
}
