package world

import (
	"fmt"
	"strings"
)

// Tile is the kind of map cell the hero moved onto.
type Tile string

const (
	TileFloor Tile = "floor"
	TileWall  Tile = "wall"
	TileGrass Tile = "grass"
	TileChest Tile = "chest"
	TileWater Tile = "water"
	TileSign  Tile = "sign"
	TileShop  Tile = "shop"
	TileNPC   Tile = "npc"
	TileDoor  Tile = "door"
	TileBoss  Tile = "boss"
)

// Random encounter rate per step.
const (
	EncounterRateGrass = 0.12
	EncounterRateFloor = 0.02
)

var tiles = map[Tile]struct{}{
	TileFloor: {}, TileWall: {}, TileGrass: {}, TileChest: {}, TileWater: {},
	TileSign: {}, TileShop: {}, TileNPC: {}, TileDoor: {}, TileBoss: {},
}

// ParseTile accepts a tile name in any case.
func ParseTile(s string) (Tile, error) {
	t := Tile(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := tiles[t]; !ok {
		return "", fmt.Errorf("unknown tile %q", s)
	}
	return t, nil
}

// Passable reports whether the hero can stand on t.
func (t Tile) Passable() bool {
	return t != TileWall && t != TileWater
}

// EncounterRate is the chance a step onto t starts a random fight.
func (t Tile) EncounterRate() float64 {
	switch t {
	case TileGrass:
		return EncounterRateGrass
	case TileFloor:
		return EncounterRateFloor
	}
	return 0
}
