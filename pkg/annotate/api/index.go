package api

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// indexHTML is a minimal single-page front end: an upload form plus a gallery
// that polls /status/{key} until both workers settle.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Image Annotate</title>
<style>
body { font-family: sans-serif; max-width: 960px; margin: 2rem auto; padding: 0 1rem; }
.card { border: 1px solid #ddd; border-radius: 6px; padding: 1rem; margin: 0.5rem 0; display: flex; gap: 1rem; }
.card img { width: 128px; height: 128px; object-fit: cover; background: #f4f4f4; }
.status { font-size: 0.85rem; color: #666; }
.failed { color: #b00; }
</style>
</head>
<body>
<h1>Image Annotate</h1>
<form id="upload-form">
  <input type="file" name="file" accept=".png,.jpg,.jpeg,.gif" required>
  <button type="submit">Upload</button>
  <span id="upload-error" class="failed"></span>
</form>
<div id="gallery"></div>
<script>
const pending = new Set();

async function refresh() {
  const res = await fetch('/gallery');
  if (!res.ok) return;
  const body = await res.json();
  const gallery = document.getElementById('gallery');
  gallery.innerHTML = '';
  for (const img of body.images) {
    if (img.annotation_status === 'pending' || img.thumbnail_status === 'pending') {
      pending.add(img.key);
    }
    const card = document.createElement('div');
    card.className = 'card';
    const thumb = img.thumbnail_url
      ? '<img src="' + img.thumbnail_url + '" alt="">'
      : '<img alt="">';
    const caption = img.annotation_status === 'completed'
      ? (img.annotation_text || '')
      : '<span class="status ' + (img.annotation_status === 'failed' ? 'failed' : '') + '">annotation: ' + img.annotation_status + '</span>';
    card.innerHTML = thumb +
      '<div><strong>' + img.display_name + '</strong><p>' + caption + '</p>' +
      '<p class="status">thumbnail: ' + img.thumbnail_status + '</p></div>';
    gallery.appendChild(card);
  }
}

async function poll() {
  for (const key of [...pending]) {
    const res = await fetch('/status/' + encodeURIComponent(key));
    if (!res.ok) { pending.delete(key); continue; }
    const st = await res.json();
    if (st.annotation_status !== 'pending' && st.thumbnail_status !== 'pending') {
      pending.delete(key);
      refresh();
    }
  }
  setTimeout(poll, 2000);
}

document.getElementById('upload-form').addEventListener('submit', async (e) => {
  e.preventDefault();
  const errEl = document.getElementById('upload-error');
  errEl.textContent = '';
  const data = new FormData(e.target);
  const res = await fetch('/upload', { method: 'POST', body: data });
  if (!res.ok) {
    const body = await res.json().catch(() => ({ error: 'upload failed' }));
    errEl.textContent = body.error;
    return;
  }
  const created = await res.json();
  pending.add(created.key);
  e.target.reset();
  refresh();
});

refresh();
poll();
</script>
</body>
</html>
`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(indexHTML)); err != nil {
		s.logger.Warn("index write failed", "request_id", middleware.GetReqID(r.Context()), "error", err)
	}
}
