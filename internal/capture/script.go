package capture

import (
	"encoding/json"
	"fmt"
)

// scriptTemplate locates the item box, drops its data table and appends every
// line as <br> + text node under the modifier group. A page without a
// modifier group keeps its table-less box and is still captured. It evaluates
// to true so callers can confirm it ran.
const scriptTemplate = `(() => {
  const root = document.querySelector(%[1]q);
  if (!root) {
    throw new Error("item box not found");
  }
  const table = root.querySelector("table");
  if (table) {
    table.remove();
  }
  const mods = root.querySelector(%[2]q);
  if (!mods) {
    return true;
  }
  const lines = %[3]s;
  for (const line of lines) {
    mods.appendChild(document.createElement("br"));
    mods.appendChild(document.createTextNode(line));
  }
  return true;
})()`

// AnnotationScript returns the injection script for annotations. The lines
// become text nodes, so they are inserted verbatim and never parsed as HTML.
func AnnotationScript(annotations []string) string {
	if annotations == nil {
		annotations = []string{}
	}
	// json.Marshal of a []string cannot fail; its output is a valid JS array literal.
	lines, _ := json.Marshal(annotations)
	return fmt.Sprintf(scriptTemplate, ItemBoxSelector, ModsSelector, lines)
}
