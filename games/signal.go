package games

// Each player joins one of several independent groups and is dealt a unique role (A-F)
// along with that role's private card of five symbols
// Exactly one symbol appears on every card in the group
// Players cannot see each other's cards; they can only message the hub role privately,
// and the hub messages them back
// The submitter role gathers what the hub has learned and submits the group's answer
// The answer is broadcast to the whole group as the game result

// Display formats:
// Role card shown after registration, with the five symbols
// One chat panel per permitted recipient (hub sees one per role; others see only the hub)
// Answer field shown only to the submitter role

// Implementation details:
// - One websocket per player; all game state lives in a single hub goroutine
// - Groups are numbered 1..N; an admin can raise or lower N while the game runs
// - Role assignment is uniformly random over the roles still free in the group
// - Lowering the group count closes higher-numbered groups; their players are told
//   and may register again

// How to play
// - Each player enters a name, picks a group, and is dealt a role and card
// - Non-hub players tell the hub which symbols they hold; the hub compares
// - When the hub is confident, it passes the shared symbol to the submitter
// - The submitter answers for the group; in validate mode the server checks the
//   answer against every card and reports which roles' cards lack it
