package rcon

import "fmt"

// Sender is the in-game name all shop chat lines are attributed to.
const Sender = "LegendShop"

// Chat message templates shown to players in-game. RichColor markup is
// interpreted by the game client.
const (
	MsgReceivedPoints = `<RichColor Color="1, 1, 0, 1">You have received %d points! (total: %d)</>`
	MsgHavePoints     = "You have %d points"
	MsgNoPoints       = `<RichColor Color="1, 0, 0, 1">You don't have enough points</>`
	MsgCantGivePoints = `<RichColor Color="1, 0, 0, 1">You can't give points to yourself</>`
	MsgSentPoints     = `<RichColor Color="0, 1, 0, 1">You have successfully sent %d points to %s</>`
	MsgGotPoints      = "You have received %d points from %s"
	MsgNoPlayer       = `<RichColor Color="1, 0, 0, 1">Player doesn't exist</>`
	MsgMorePlayers    = `<RichColor Color="1, 0, 0, 1">Found more than one player with the given name</>`
)

// ChatCommand builds the server command that whispers a shop message to one
// player.
func ChatCommand(target, message string) string {
	return fmt.Sprintf("chat %s %s %s", target, Sender, message)
}
