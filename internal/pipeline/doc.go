// Package pipeline turns source code into a blog post in four prompt stages.
//
// Each stage renders one server prompt, sends it to the model, and hands its
// output to the next stage:
//
//	Extracting --Extract--> Extracted --Intro--> IntroGenerated --Main--> MainGenerated --Aggregate--> Aggregated
//
// Every state is its own type and only exposes the transition that follows it,
// so stages cannot be skipped. A state that was not produced by its predecessor,
// or that already ran, refuses with errors.ErrStageOutOfOrder. The extract stage
// must yield exactly KeywordCount keywords; unparseable or short output is a
// *errors.MalformedResponseError.
package pipeline
