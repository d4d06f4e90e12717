// internal/game/utils.go
package game

const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateRoomCode returns a random six character code. Ambiguous characters (0, O, 1, I)
// are left out so codes can be read aloud.
func GenerateRoomCode(r Random) string {
	b := make([]byte, RoomCodeLength)
	for i := range b {
		b[i] = roomCodeAlphabet[r.Intn(len(roomCodeAlphabet))]
	}
	return string(b)
}
