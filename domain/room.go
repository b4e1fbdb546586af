package domain

import "strings"

// RoomKey identifies the conversation of an unordered pair of users.
type RoomKey string

// roomKeySeparator cannot appear in usernames (enforced at registration),
// which makes the derived key collision-free for distinct pairs.
const roomKeySeparator = "#"

// DeriveRoomKey maps an unordered pair of usernames to its canonical room
// key: the pair is sorted lexicographically and joined with the separator,
// so DeriveRoomKey(a, b) == DeriveRoomKey(b, a). A self-pair is valid and
// yields a single-member room.
func DeriveRoomKey(a, b string) RoomKey {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return RoomKey(a + roomKeySeparator + b)
}
