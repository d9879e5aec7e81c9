// Package guiprocess supervises external programs started on behalf of an
// interactive window and reports their lifecycle as user-visible
// notifications.
//
// A Process wraps a procexec.Executor. The owner starts a command, then
// drives lifecycle events into the Process on one goroutine, either by
// calling Run or by forwarding each event to HandleEvent:
//
//	p := guiprocess.New("win-0", "userscript", procexec.New(), bus,
//		guiprocess.WithVerbose(true))
//	if err := p.Start(ctx, "/usr/bin/env", []string{"python3", "script.py"}, procexec.ModeReadWrite); err != nil {
//		return err // already running
//	}
//	_ = p.Run(ctx)
//
// Notifications produced for one attempt:
//
//	spawn failure       error   "Error while spawning userscript: The process failed to start."
//	killed by a signal  error   "Error while spawning userscript: The process crashed."
//	                    error   "Userscript crashed!"
//	exit status 0       info    "Userscript exited successfully."   (verbose only)
//	exit status N       error   "Userscript exited with status N."
//
// Verbose processes additionally announce "Executing: <command line>"
// before each start.
package guiprocess
