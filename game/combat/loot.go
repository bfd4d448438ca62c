package combat

import (
	"fmt"
	"strings"
)

// Chest loot odds.
const (
	ChestGoldMin     = 8
	ChestGoldMax     = 20
	ChestPotionOdds  = 0.55
	ChestGearOdds    = 0.25
	chestWeaponOdds  = 0.5
	rareRarityCutoff = 0.70
	epicRarityCutoff = 0.93
)

// Rarity scales the bonus of rolled gear.
type Rarity struct {
	Name string
	Mult float64
}

var (
	RarityCommon = Rarity{"Common", 1.0}
	RarityRare   = Rarity{"Rare", 1.25}
	RarityEpic   = Rarity{"Epic", 1.55}
)

var (
	weaponNames    = []string{"Iron Dagger", "Steel Shortsword", "Knight Blade", "Hunter Spear", "Moonfang"}
	weaponPrefixes = []string{"Plain", "Sharpened", "Vicious", "Gleaming", "Runed"}
	armorNames     = []string{"Leather Vest", "Chain Shirt", "Guard Plate", "Wolfhide Cloak", "Starsewn Mail"}
	armorPrefixes  = []string{"Sturdy", "Padded", "Blessed", "Reinforced", "Runed"}
)

func rollRarity(rng RNG) Rarity {
	r := rng.Float64()
	switch {
	case r < rareRarityCutoff:
		return RarityCommon
	case r < epicRarityCutoff:
		return RarityRare
	}
	return RarityEpic
}

// rollGear draws rarity, bonus, prefix and base name, in that order.
func rollGear(rng RNG, level int, prefixes, names []string) (string, int) {
	rar := rollRarity(rng)
	base := rollInt(rng, 1, 5) + level/2
	bonus := roundHalfUp(float64(base) * rar.Mult)
	if bonus < 1 {
		bonus = 1
	}
	name := fmt.Sprintf("%s %s %s", rar.Name, prefixes[rng.Intn(len(prefixes))], names[rng.Intn(len(names))])
	return name, bonus
}

// RollWeapon rolls a weapon scaled to the hero's level.
func RollWeapon(rng RNG, level int) Weapon {
	name, atk := rollGear(rng, level, weaponPrefixes, weaponNames)
	return Weapon{Name: name, Atk: atk}
}

// RollArmor rolls armor scaled to the hero's level.
func RollArmor(rng RNG, level int) Armor {
	name, def := rollGear(rng, level, armorPrefixes, armorNames)
	return Armor{Name: name, Def: def}
}

// ChestLoot is what one chest held. At most one of Weapon and Armor is set.
type ChestLoot struct {
	Gold     int     `json:"gold"`
	Potion   bool    `json:"potion"`
	Weapon   *Weapon `json:"weapon,omitempty"`
	Armor    *Armor  `json:"armor,omitempty"`
	Equipped bool    `json:"equipped"`
}

// RollChestLoot rolls the contents of an unopened chest.
func RollChestLoot(rng RNG, level int) ChestLoot {
	loot := ChestLoot{Gold: rollInt(rng, ChestGoldMin, ChestGoldMax)}
	loot.Potion = chance(rng, ChestPotionOdds)
	if chance(rng, ChestGearOdds) {
		if chance(rng, chestWeaponOdds) {
			w := RollWeapon(rng, level)
			loot.Weapon = &w
		} else {
			a := RollArmor(rng, level)
			loot.Armor = &a
		}
	}
	return loot
}

// TakeLoot credits loot to the hero and equips gear that beats what the
// hero wears. It returns the log line.
func (h *Hero) TakeLoot(loot *ChestLoot) string {
	h.Gold += loot.Gold
	parts := []string{fmt.Sprintf("+%d gold", loot.Gold)}
	if loot.Potion {
		h.Potions++
		parts = append(parts, "+1 potion")
	}

	verb := "found"
	switch {
	case loot.Weapon != nil:
		if loot.Weapon.Atk > h.Weapon.Atk {
			h.Weapon = *loot.Weapon
			loot.Equipped = true
			verb = "equipped"
		}
		parts = append(parts, fmt.Sprintf("%s %s (+%d ATK)", verb, loot.Weapon.Name, loot.Weapon.Atk))
	case loot.Armor != nil:
		if loot.Armor.Def > h.Armor.Def {
			h.Armor = *loot.Armor
			loot.Equipped = true
			verb = "equipped"
		}
		parts = append(parts, fmt.Sprintf("%s %s (+%d DEF)", verb, loot.Armor.Name, loot.Armor.Def))
	}
	return "You open the chest: " + strings.Join(parts, " and ") + "!"
}
