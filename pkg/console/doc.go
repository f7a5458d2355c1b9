// Package console holds the terminal plumbing shared by every xcexport step:
// leveled, colored status lines (Messenger) and line-based prompts with a
// default fallback and a yes/no gate that can be bypassed (Prompter).
package console
