package view

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StampScript returns JavaScript that writes the bounding box and a hover id
// onto every element matching any of selectors. It evaluates to the number
// of elements stamped. Ids are kept across captures of the same page.
func StampScript(selectors []string) string {
	sel := strings.Join(selectors, ", ")
	if sel == "" {
		sel = "body"
	}
	quoted, _ := json.Marshal(sel)
	return fmt.Sprintf(`(function(sel) {
	window.__fbsSeq = window.__fbsSeq || 0;
	let n = 0;
	document.querySelectorAll(sel).forEach(el => {
		const r = el.getBoundingClientRect();
		el.setAttribute(%[2]q, r.x.toFixed(2));
		el.setAttribute(%[3]q, r.y.toFixed(2));
		el.setAttribute(%[4]q, r.width.toFixed(2));
		el.setAttribute(%[5]q, r.height.toFixed(2));
		if (!el.hasAttribute(%[6]q)) {
			window.__fbsSeq++;
			el.setAttribute(%[6]q, 'fbs' + window.__fbsSeq);
		}
		n++;
	});
	return n;
})(%[1]s)`, quoted, AttrX, AttrY, AttrW, AttrH, AttrID)
}
