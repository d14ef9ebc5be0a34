// Package view centralizes the display view transitions that were
// previously implied by individual event handlers. The machine is advisory
// by design: the terminal is the single writer of its session and may set
// any view at any time, so Allowed documents the expected flow without
// enforcing it.
package view

import "github.com/jeongwonlab/possync/internal/model"

// Expected holds the forward transitions of the normal payment flow.
var Expected = map[model.View][]model.View{
	model.ViewIdle:          {model.ViewPhoneInput, model.ViewCart},
	model.ViewPhoneInput:    {model.ViewCart, model.ViewMemberConfirm, model.ViewError, model.ViewIdle},
	model.ViewCart:          {model.ViewPhoneInput, model.ViewMemberConfirm, model.ViewProcessing, model.ViewError, model.ViewIdle},
	model.ViewMemberConfirm: {model.ViewCart, model.ViewProcessing, model.ViewError},
	model.ViewProcessing:    {model.ViewSuccess, model.ViewError},
	model.ViewSignature:     {model.ViewSuccess, model.ViewError},
	model.ViewSuccess:       {model.ViewIdle},
	model.ViewError:         {model.ViewIdle, model.ViewCart, model.ViewPhoneInput},
}

// Allowed reports whether moving from cur to next follows the expected
// flow. Callers use this for logging unexpected jumps, never to reject.
func Allowed(cur, next model.View) bool {
	if cur == next {
		return true
	}
	for _, v := range Expected[Normalize(cur)] {
		if v == Normalize(next) {
			return true
		}
	}
	return false
}

// Normalize maps legacy views onto their modern equivalent. SIGNATURE is an
// alias of PROCESSING kept for older display surfaces.
func Normalize(v model.View) model.View {
	if v == model.ViewSignature {
		return model.ViewProcessing
	}
	return v
}

// Terminal reports whether a view ends the flow and is subject to the
// timed auto-reset back to IDLE.
func Terminal(v model.View) bool {
	return v == model.ViewSuccess || v == model.ViewError
}
