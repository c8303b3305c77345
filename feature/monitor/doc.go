// Package monitor renders rebuild progress in the terminal with BubbleTea.
//
// A Bridge forwards driver events to the program as messages; the Model
// shows a progress bar, outcome counters and the last finished tokens.
// Pressing "s" stops the run after the tokens in flight.
package monitor
