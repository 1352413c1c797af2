package entity

import "time"

const MemberRoleBacker = "BACKER"

type Member struct {
	ID uint64

	CollectiveID uint64
	UserID       uint64
	Role         string

	CreatedAt time.Time
}
