package app

// MinPlayersToStartGame is the smallest table the engine will deal to.
const MinPlayersToStartGame = 2

// ReviveEffect and BribeEffect name the item effects the engine understands.
const (
	ReviveEffect = "revive"
	BribeEffect  = "bribe_pass"
)
