package types

// Client -> Server (websocket, JSON; the "type" field selects the command)
//
// SetReady:
//   isReady: boolean
//
// SwitchGroup:
//   groupId: "A" | "B"
//
// AddBot: {}            host only, lobby phase
// RemoveBot:
//   targetId: string    host only
// Kick:
//   targetId: string    host only
//
// UpdateSettings:       host only
//   settings:
//     roundTime: 30 | 45 | 60 | 90
//     rounds: 2 | 4 | 6 | 8
//     categories: string[]
//     difficulty: "easy" | "normal" | "hard"
//     gameMode: "single_player" | "vs_computer" | "vs_player"
//     gameStructure: "1v1" | "2v2" | "1v2" | "1v3" | "freeForAll"
//
// StartGame: {}         host only; all humans ready, both teams seated
//
// ChooseLetter:
//   letter: string      one of the offered options, chooser only
//
// StartWriting: {}
// SetAnswers:
//   answers: { [category]: string[] }
//
// FinishRound: {}
// NextRound: {}         host only, from the results phase
// ForfeitRound: {}
// ForfeitGame: {}

// Server -> Client
//
// StateSnapshot:
//   snapshot: see snapshot.go
//
// Error:
//   error: string
