// Kverna - EVE Online Killmail Intel Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kverna

package models

// Killmail is a single kill event. It is immutable once decoded.
type Killmail struct {
	KillmailID    int64      `json:"killmail_id"`
	KillmailTime  string     `json:"killmail_time"`
	SolarSystemID int64      `json:"solar_system_id"`
	MoonID        *int64     `json:"moon_id,omitempty"`
	WarID         *int64     `json:"war_id,omitempty"`
	Victim        Victim     `json:"victim"`
	Attackers     []Attacker `json:"attackers"`
}

// Victim is the losing side of a killmail.
type Victim struct {
	AllianceID    *int64    `json:"alliance_id,omitempty"`
	CharacterID   *int64    `json:"character_id,omitempty"`
	CorporationID *int64    `json:"corporation_id,omitempty"`
	FactionID     *int64    `json:"faction_id,omitempty"`
	DamageTaken   *int64    `json:"damage_taken,omitempty"`
	ShipTypeID    *int64    `json:"ship_type_id,omitempty"`
	Items         []Item    `json:"items"`
	Position      *Position `json:"position,omitempty"`
}

// Attacker is one participant on the killing side.
type Attacker struct {
	AllianceID     *int64   `json:"alliance_id,omitempty"`
	CharacterID    *int64   `json:"character_id,omitempty"`
	CorporationID  *int64   `json:"corporation_id,omitempty"`
	FactionID      *int64   `json:"faction_id,omitempty"`
	DamageDone     *int64   `json:"damage_done,omitempty"`
	FinalBlow      *bool    `json:"final_blow,omitempty"`
	SecurityStatus *float64 `json:"security_status,omitempty"`
	ShipTypeID     *int64   `json:"ship_type_id,omitempty"`
	WeaponTypeID   *int64   `json:"weapon_type_id,omitempty"`
}

// Item is a fitted or carried item on the victim's ship.
type Item struct {
	Flag              *int64 `json:"flag,omitempty"`
	ItemTypeID        *int64 `json:"item_type_id,omitempty"`
	QuantityDestroyed *int64 `json:"quantity_destroyed,omitempty"`
	QuantityDropped   *int64 `json:"quantity_dropped,omitempty"`
	Singleton         *int64 `json:"singleton,omitempty"`
}

// Zkb is the value record the feed pairs with each killmail. Href locates
// the full killmail body.
type Zkb struct {
	LocationID  *int64   `json:"locationID,omitempty"`
	Hash        string   `json:"hash"`
	FittedValue *float64 `json:"fittedValue,omitempty"`
	TotalValue  *float64 `json:"totalValue,omitempty"`
	Points      *int64   `json:"points,omitempty"`
	NPC         *bool    `json:"npc,omitempty"`
	Solo        *bool    `json:"solo,omitempty"`
	Awox        *bool    `json:"awox,omitempty"`
	Href        string   `json:"href"`
}

// Kill pairs a killmail with the value record the feed delivered it with.
type Kill struct {
	Killmail Killmail
	Zkb      Zkb
}

// Identities returns the victim's set alliance, corporation, character and
// faction IDs.
func (v *Victim) Identities() []int64 {
	return collectIDs(nil, v.AllianceID, v.CorporationID, v.CharacterID, v.FactionID)
}

// Identities returns the attacker's set alliance, corporation, character and
// faction IDs.
func (a *Attacker) Identities() []int64 {
	return collectIDs(nil, a.AllianceID, a.CorporationID, a.CharacterID, a.FactionID)
}

// AttackerIdentities returns the union of identity IDs over all attackers.
// Duplicates are kept; callers only test membership.
func (k *Killmail) AttackerIdentities() []int64 {
	ids := make([]int64, 0, len(k.Attackers)*4)
	for i := range k.Attackers {
		a := &k.Attackers[i]
		ids = collectIDs(ids, a.AllianceID, a.CorporationID, a.CharacterID, a.FactionID)
	}
	return ids
}

// AttackerShipTypes returns the ship type IDs flown by attackers.
func (k *Killmail) AttackerShipTypes() []int64 {
	ids := make([]int64, 0, len(k.Attackers))
	for i := range k.Attackers {
		ids = collectIDs(ids, k.Attackers[i].ShipTypeID)
	}
	return ids
}

// VictimShipTypes returns the victim's ship type as a slice, empty if unknown.
func (k *Killmail) VictimShipTypes() []int64 {
	return collectIDs(nil, k.Victim.ShipTypeID)
}

// ItemTypes returns the type IDs of the victim's items, skipping items
// without one.
func (v *Victim) ItemTypes() []int64 {
	ids := make([]int64, 0, len(v.Items))
	for i := range v.Items {
		ids = collectIDs(ids, v.Items[i].ItemTypeID)
	}
	return ids
}

func collectIDs(dst []int64, ids ...*int64) []int64 {
	for _, id := range ids {
		if id != nil {
			dst = append(dst, *id)
		}
	}
	return dst
}
