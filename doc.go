// # Vision Assist
//
// Package assist is the interaction core of a hands-free vision assistant. A
// Controller coordinates spoken output, single-shot spoken commands and an
// environment scanner so that only one of them is active at a time, turns
// recognised text into a fixed command vocabulary, and keeps one shared "last
// scan" record that voice and touch triggers both read.
//
// Speech engines and the scanner are injected as capabilities (SpeechOutput,
// SpeechInput, ScanProducer). A missing capability degrades to announcements
// instead of failing.
package assist
