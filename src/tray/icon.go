package tray

// SVG content for the tray icon
const iconSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16" width="16" height="16">
  <!-- Highlight rectangle -->
  <rect x="2" y="4" width="9" height="7" fill="none" stroke="#2ecc40" stroke-width="1.5" rx="1"/>

  <!-- Pointer arrow -->
  <g stroke="#333333" stroke-width="1.2" stroke-linecap="round">
    <line x1="13" y1="3" x2="8" y2="8"/>
    <line x1="8" y1="8" x2="10" y2="7.4"/>
    <line x1="8" y1="8" x2="8.6" y2="6"/>
  </g>
</svg>`

func getIcon() []byte {
	return []byte(iconSVG)
}
