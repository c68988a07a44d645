package types

// StateSnapshot:
//   version: number              monotonic per lobby; stale versions are safe to drop
//   state:
//     id: string
//     inviteCode: string
//     settings: see messages.go UpdateSettings
//     players: [{ id, name, avatar, score, isReady, playerType, groupId, isHost }]
//     groups: [{ groupId, players: string[] }]
//     teamScores: [{ groupId, score }]
//     currentRound: number
//     roundResults: [{ letter, answers, scores, botAnswerPlan?, summary,
//                      endedBy?, forfeitingPlayerId?, forfeitingPlayerPenalty?,
//                      winnerForfeitPoints? }]
//     gameState: "lobby" | "countdown" | "in_progress" | "finished"
//   round?:                      present from countdown end until next lobby phase
//     phase: "choosing" | "answering" | "round_finished" | "results"
//     round: number
//     letterOptions?: string[]
//     chooserId?: string
//     letter?: string
//     remainingTime: number      seconds
//     extraTimeFor?: "human" | "bot"
//     progress: { [playerId]: { playerId, status, answersCount, finishedRound } }
//   countdown?: number           seconds until round 1
//   gameOver?: winner / winnerRevealPhase / topRareWords / playerStats,
//              plus forfeit metadata when the game ended by forfeit
//   notice?: string              transient, shown once
