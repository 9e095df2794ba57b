// Package ime connects the SKK conversion engine to input method
// frameworks.
//
// A Composer hosts one skk.Session over an in-memory buffer and turns its
// output into the two things a framework can show: committed text, which
// the application receives, and the preedit, which is drawn at the cursor
// until it is committed. Dictionary registration runs in a nested Composer
// whose preedit is appended after the parent's.
//
// On Linux, IBusServer owns the component bus name on the ibus-daemon bus
// and exports an IBusFactory that creates one IBusEngine per input
// context:
//
//	Key Event → KeyFromKeysym → Composer.HandleKey → CommitText / UpdatePreeditText
//
// Component files that register the engine with ibus-daemon are written by
// InstallComponent.
package ime
