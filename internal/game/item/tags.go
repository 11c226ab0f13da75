package item

import "github.com/cory-johannsen/stockpile/internal/game/tag"

// Well-known item tags.
const (
	ItemTag tag.Tag = "Inventory.Item"

	TypeTag        tag.Tag = "Inventory.Item.Type"
	TypeResource   tag.Tag = "Inventory.Item.Type.Resource"
	TypeConsumable tag.Tag = "Inventory.Item.Type.Consumable"
	TypeBuildable  tag.Tag = "Inventory.Item.Type.Buildable"
	TypeEquippable tag.Tag = "Inventory.Item.Type.Equippable"
	TypeTool       tag.Tag = "Inventory.Item.Type.Tool"
	TypeWeapon     tag.Tag = "Inventory.Item.Type.Weapon"

	TraitTag       tag.Tag = "Inventory.Item.Trait"
	TraitStackable tag.Tag = "Inventory.Item.Trait.Stackable"
)
